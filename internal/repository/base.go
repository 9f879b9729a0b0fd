// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by repositories so services can map them to
// domain error codes without depending on driver internals.
var (
	// ErrAlreadyRated is returned when a user already holds the same
	// rating edge for a post.
	ErrAlreadyRated = errors.New("post already rated")
	// ErrAlreadyMember is returned when a user is already a member of a chat.
	ErrAlreadyMember = errors.New("user already in chat")
	// ErrNotSubscribed is returned when an unsubscribe targets a missing edge.
	ErrNotSubscribed = errors.New("user not in subscriptions")
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// Postgres surfaces these as SQLSTATE 23505; sqlite (used by tests) reports
// them as a plain error string.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
