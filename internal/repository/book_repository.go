package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/library-reading-room/internal/model"
	"github.com/iliyamo/library-reading-room/internal/schedule"
)

// BookRepo provides read and import access to the book catalog. Books
// reference authors and genres through foreign keys; both are joined on
// every read so callers always receive fully populated records.
// BookRepo implements schedule.Catalog.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

const bookColumns = `b.id, b.name, b.publish_year, b.count, b.image_path,
       a.id, a.name, a.surname, a.patronymic, a.science_degree, a.workplace, a.faculty,
       g.id, g.name`

const bookJoins = ` FROM books b
       JOIN authors a ON a.id = b.author_id
       JOIN genres g ON g.id = b.genre_id`

// GetBookByID loads one book with its author and genre. It returns an
// error wrapping schedule.ErrNotFound when the id is unknown.
func (r *BookRepo) GetBookByID(ctx context.Context, id uint64) (model.Book, error) {
	q := "SELECT " + bookColumns + bookJoins + " WHERE b.id = ? LIMIT 1"
	b, err := scanBook(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, fmt.Errorf("%w: book %d", schedule.ErrNotFound, id)
	}
	return b, err
}

// FindByName returns the first book with the given title, matched
// case-insensitively. It returns an error wrapping schedule.ErrNotFound
// when no book matches.
func (r *BookRepo) FindByName(ctx context.Context, name string) (model.Book, error) {
	q := "SELECT " + bookColumns + bookJoins + " WHERE UPPER(b.name) = UPPER(?) LIMIT 1"
	b, err := scanBook(r.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, fmt.Errorf("%w: book %q", schedule.ErrNotFound, name)
	}
	return b, err
}

// ListByName returns books whose title matches name case-insensitively,
// or every book when name is empty.
func (r *BookRepo) ListByName(ctx context.Context, name string) ([]model.Book, error) {
	q := "SELECT " + bookColumns + bookJoins
	args := []interface{}{}
	if name != "" {
		q += " WHERE UPPER(b.name) LIKE UPPER(?)"
		args = append(args, name)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// BookFilter narrows a catalog listing. Zero-valued fields are ignored;
// string matches are case-insensitive substring matches.
type BookFilter struct {
	Name          string
	AuthorSurname string
	Genre         string
	YearFrom      int
	YearTo        int
}

// ListFiltered returns books matching every set field of the filter.
func (r *BookRepo) ListFiltered(ctx context.Context, f BookFilter) ([]model.Book, error) {
	q := "SELECT " + bookColumns + bookJoins
	conds := []string{}
	args := []interface{}{}
	if f.Name != "" {
		conds = append(conds, "UPPER(b.name) LIKE UPPER(?)")
		args = append(args, "%"+f.Name+"%")
	}
	if f.AuthorSurname != "" {
		conds = append(conds, "UPPER(a.surname) LIKE UPPER(?)")
		args = append(args, "%"+f.AuthorSurname+"%")
	}
	if f.Genre != "" {
		conds = append(conds, "UPPER(g.name) LIKE UPPER(?)")
		args = append(args, "%"+f.Genre+"%")
	}
	if f.YearFrom != 0 {
		conds = append(conds, "b.publish_year >= ?")
		args = append(args, f.YearFrom)
	}
	if f.YearTo != 0 {
		conds = append(conds, "b.publish_year <= ?")
		args = append(args, f.YearTo)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Create inserts a book along with its author, reusing an existing genre
// row by name or creating one. The generated ids are assigned on the
// provided record.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
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
	if err := r.createTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// CreateBulk inserts a batch of imported books inside one transaction.
// Either every book is persisted or none.
func (r *BookRepo) CreateBulk(ctx context.Context, books []model.Book) ([]model.Book, error) {
	if len(books) == 0 {
		return books, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for i := range books {
		if err := r.createTx(ctx, tx, &books[i]); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return books, nil
}

func (r *BookRepo) createTx(ctx context.Context, tx *sql.Tx, b *model.Book) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO authors (name, surname, patronymic, science_degree, workplace, faculty)
         VALUES (?,?,?,?,?,?)`,
		b.Author.Name, b.Author.Surname, b.Author.Patronymic,
		b.Author.ScienceDegree, b.Author.Workplace, b.Author.Faculty)
	if err != nil {
		return err
	}
	aid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.Author.ID = uint64(aid)

	gid, err := getOrCreateGenreTx(ctx, tx, b.Genre.Name)
	if err != nil {
		return err
	}
	b.Genre.ID = gid

	res, err = tx.ExecContext(ctx,
		`INSERT INTO books (name, author_id, genre_id, publish_year, count, image_path)
         VALUES (?,?,?,?,?,?)`,
		b.Name, b.Author.ID, b.Genre.ID, b.PublishYear, b.Count, b.ImagePath)
	if err != nil {
		return err
	}
	bid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(bid)
	return nil
}

func getOrCreateGenreTx(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM genres WHERE UPPER(name) = UPPER(?) LIMIT 1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO genres (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	gid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(gid), nil
}

// DeleteByName removes the book with the given title. It returns an
// error wrapping schedule.ErrNotFound when no book matches.
func (r *BookRepo) DeleteByName(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE UPPER(name) = UPPER(?)", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: book %q", schedule.ErrNotFound, name)
	}
	return nil
}

// ListGenres returns every catalog genre ordered by name.
func (r *BookRepo) ListGenres(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM genres ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	genres := make([]model.Genre, 0)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(s scanner) (model.Book, error) {
	var b model.Book
	var imagePath sql.NullString
	err := s.Scan(
		&b.ID, &b.Name, &b.PublishYear, &b.Count, &imagePath,
		&b.Author.ID, &b.Author.Name, &b.Author.Surname, &b.Author.Patronymic,
		&b.Author.ScienceDegree, &b.Author.Workplace, &b.Author.Faculty,
		&b.Genre.ID, &b.Genre.Name,
	)
	if err != nil {
		return model.Book{}, err
	}
	if imagePath.Valid {
		b.ImagePath = imagePath.String
	}
	return b, nil
}

// ErrUnknownSortKey is returned when a sort request names a field outside
// the supported enumeration.
var ErrUnknownSortKey = errors.New("unknown sort key")

// bookComparators is the closed set of supported catalog sort keys. An
// unknown key is rejected explicitly rather than silently ignored.
var bookComparators = map[string]func(a, b model.Book) bool{
	"name":         func(a, b model.Book) bool { return a.Name < b.Name },
	"publish_year": func(a, b model.Book) bool { return a.PublishYear < b.PublishYear },
}

// SortBooks orders books in place by the named key. Order is "asc" or
// "desc" (default ascending).
func SortBooks(books []model.Book, key, order string) error {
	less, ok := bookComparators[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(books, func(i, j int) bool {
		if desc {
			return less(books[j], books[i])
		}
		return less(books[i], books[j])
	})
	return nil
}
