package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/library-reading-room/internal/model"
	"github.com/iliyamo/library-reading-room/internal/schedule"
)

// SessionRepo provides CRUD operations for reading sessions and their
// book links. A session groups one or more books reserved by a user for
// an interval; the books are stored in the session_books join table.
// All timestamp fields are stored in UTC. SessionRepo implements
// schedule.SessionStore; the overlap-count queries use BETWEEN on both
// bounds, so boundary-touching intervals count as overlapping, matching
// schedule.Overlap.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx, letting row helpers
// run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Transact runs fn inside a single database transaction. The transaction
// is committed when fn returns nil and rolled back otherwise. Conflict
// counting and the subsequent insert/update go through the same
// transaction so that concurrent submissions serialize on the store.
func (r *SessionRepo) Transact(ctx context.Context, fn func(tx schedule.SessionTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sessionTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// sessionTx is the transactional view handed to schedule.Manager.
type sessionTx struct {
	tx *sql.Tx
}

// CountOverlappingForUser counts the user's sessions whose interval
// overlaps [start, end], bounds inclusive.
func (t *sessionTx) CountOverlappingForUser(ctx context.Context, userID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM sessions s
               WHERE s.user_id = ?
                 AND ((? BETWEEN s.start_timestamp AND s.end_timestamp)
                   OR (? BETWEEN s.start_timestamp AND s.end_timestamp)
                   OR (s.start_timestamp BETWEEN ? AND ?))`
	var n int
	err := t.tx.QueryRowContext(ctx, q, userID, start, end, start, end).Scan(&n)
	return n, err
}

// CountOverlappingForBook counts sessions holding the book whose interval
// overlaps [start, end], bounds inclusive.
func (t *sessionTx) CountOverlappingForBook(ctx context.Context, bookID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM sessions s
               JOIN session_books sb ON sb.session_id = s.id
               WHERE sb.book_id = ?
                 AND ((? BETWEEN s.start_timestamp AND s.end_timestamp)
                   OR (? BETWEEN s.start_timestamp AND s.end_timestamp)
                   OR (s.start_timestamp BETWEEN ? AND ?))`
	var n int
	err := t.tx.QueryRowContext(ctx, q, bookID, start, end, start, end).Scan(&n)
	return n, err
}

// InsertSession persists a new session row and its book links, assigning
// the generated ID on the provided record.
func (t *sessionTx) InsertSession(ctx context.Context, s *model.Session) error {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO sessions (user_id, start_timestamp, end_timestamp) VALUES (?,?,?)",
		s.UserID, s.StartTime, s.EndTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return insertBookLinks(ctx, t.tx, s.ID, s.BookIDs)
}

// UpdateSession overwrites the session row wholesale and replaces its
// book links.
func (t *sessionTx) UpdateSession(ctx context.Context, s *model.Session) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE sessions SET user_id=?, start_timestamp=?, end_timestamp=? WHERE id=?",
		s.UserID, s.StartTime, s.EndTime, s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// The row may still exist with identical values; verify.
		var exists int
		if err := t.tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sessions WHERE id=?", s.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return schedule.ErrNotFound
		}
	}
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM session_books WHERE session_id=?", s.ID); err != nil {
		return err
	}
	return insertBookLinks(ctx, t.tx, s.ID, s.BookIDs)
}

// insertBookLinks bulk-inserts session_books rows for one session.
// Passing an empty slice has no effect and returns nil.
func insertBookLinks(ctx context.Context, q querier, sessionID uint64, bookIDs []uint64) error {
	if len(bookIDs) == 0 {
		return nil
	}
	query := "INSERT INTO session_books (session_id, book_id) VALUES "
	args := make([]interface{}, 0, len(bookIDs)*2)
	for i, bid := range bookIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, sessionID, bid)
	}
	_, err := q.ExecContext(ctx, query, args...)
	return err
}

// GetSessionByID loads one session with its book links. It returns an
// error wrapping schedule.ErrNotFound when the id is unknown.
func (r *SessionRepo) GetSessionByID(ctx context.Context, id uint64) (model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, start_timestamp, end_timestamp FROM sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("%w: session %d", schedule.ErrNotFound, id)
	}
	if err != nil {
		return model.Session{}, err
	}
	sessions := []model.Session{s}
	if err := attachBookIDs(ctx, r.db, sessions); err != nil {
		return model.Session{}, err
	}
	return sessions[0], nil
}

// DeleteSessionByID removes a session and its book links outright.
func (r *SessionRepo) DeleteSessionByID(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM session_books WHERE session_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %d", schedule.ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// FindAllByUser returns every session belonging to the user.
func (r *SessionRepo) FindAllByUser(ctx context.Context, userID uint64) ([]model.Session, error) {
	const q = `SELECT id, user_id, start_timestamp, end_timestamp
               FROM sessions WHERE user_id = ?`
	return r.querySessions(ctx, q, userID)
}

// FindByUserAndDate returns the user's sessions starting on the given
// calendar date.
func (r *SessionRepo) FindByUserAndDate(ctx context.Context, userID uint64, date time.Time) ([]model.Session, error) {
	const q = `SELECT id, user_id, start_timestamp, end_timestamp
               FROM sessions WHERE user_id = ? AND DATE(start_timestamp) = ?`
	return r.querySessions(ctx, q, userID, date.Format("2006-01-02"))
}

// FindByBookAndDate returns sessions holding the book that start on the
// given calendar date.
func (r *SessionRepo) FindByBookAndDate(ctx context.Context, bookID uint64, date time.Time) ([]model.Session, error) {
	const q = `SELECT s.id, s.user_id, s.start_timestamp, s.end_timestamp
               FROM sessions s
               JOIN session_books sb ON sb.session_id = s.id
               WHERE sb.book_id = ? AND DATE(s.start_timestamp) = ?`
	return r.querySessions(ctx, q, bookID, date.Format("2006-01-02"))
}

// FindAllInDateRange returns sessions whose start date falls within
// [from, to], bounds inclusive. Used by the occupancy aggregator.
func (r *SessionRepo) FindAllInDateRange(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	const q = `SELECT id, user_id, start_timestamp, end_timestamp
               FROM sessions WHERE DATE(start_timestamp) BETWEEN ? AND ?`
	return r.querySessions(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// FindAll returns every stored session.
func (r *SessionRepo) FindAll(ctx context.Context) ([]model.Session, error) {
	const q = `SELECT id, user_id, start_timestamp, end_timestamp FROM sessions`
	return r.querySessions(ctx, q)
}

// querySessions runs a session query and attaches book links in one
// follow-up IN query.
func (r *SessionRepo) querySessions(ctx context.Context, query string, args ...interface{}) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachBookIDs(ctx, r.db, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// attachBookIDs populates BookIDs for all sessions in a single query.
func attachBookIDs(ctx context.Context, q querier, sessions []model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(sessions))
	placeholders := make([]string, 0, len(sessions))
	index := make(map[uint64]int, len(sessions))
	for i, s := range sessions {
		ids = append(ids, s.ID)
		placeholders = append(placeholders, "?")
		index[s.ID] = i
	}
	query := `SELECT session_id, book_id FROM session_books
              WHERE session_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY session_id, id`
	rows, err := q.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid, bid uint64
		if err := rows.Scan(&sid, &bid); err != nil {
			return err
		}
		if i, ok := index[sid]; ok {
			sessions[i].BookIDs = append(sessions[i].BookIDs, bid)
		}
	}
	return rows.Err()
}
