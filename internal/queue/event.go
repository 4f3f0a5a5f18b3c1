// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// SessionBookedEvent is published when a reading session is successfully
// created. It carries enough information for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type SessionBookedEvent struct {
	SessionID uint64   `json:"session_id"`
	UserID    uint64   `json:"user_id"`
	UserEmail string   `json:"user_email"`
	Books     []string `json:"books"`
	StartsAt  string   `json:"starts_at"`
	EndsAt    string   `json:"ends_at"`
	BookedAt  string   `json:"booked_at"`
}
