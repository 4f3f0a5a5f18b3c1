package model

import "time"

// Session records a user's time-bounded claim on one or more books in
// the reading room. The books are linked through the session_books join
// table. StartTime < EndTime is enforced by the scheduling engine before
// a session is persisted, never assumed on rows written by other means.
//
// Fields:
//  ID        – primary key identifier, assigned on creation.
//  UserID    – user holding the session.
//  BookIDs   – books reserved for the interval, in request order.
//  StartTime – when the session begins (UTC).
//  EndTime   – when the session ends (UTC).
type Session struct {
	ID        uint64    // sessions.id
	UserID    uint64    // sessions.user_id
	BookIDs   []uint64  // session_books.book_id, ordered
	StartTime time.Time // sessions.start_timestamp
	EndTime   time.Time // sessions.end_timestamp
}
