package models

import (
	"time"
)

// HistoryKind discriminates the two row kinds a chat history page mixes.
type HistoryKind string

const (
	// HistoryKindMessage tags a chat message row.
	HistoryKindMessage HistoryKind = "message"
	// HistoryKindEvent tags a membership event row.
	HistoryKindEvent HistoryKind = "event"
)

// HistoryItem is one entry of a chat's merged history page: exactly one
// of Message / Event is set, matching Kind.
type HistoryItem struct {
	Kind    HistoryKind `json:"kind"`
	Message *Message    `json:"message,omitempty"`
	Event   *Event      `json:"event,omitempty"`
}

// CreatedAt returns the timestamp of the underlying row.
func (h HistoryItem) CreatedAt() time.Time {
	if h.Kind == HistoryKindMessage && h.Message != nil {
		return h.Message.CreatedAt
	}
	if h.Event != nil {
		return h.Event.CreatedAt
	}
	return time.Time{}
}

// RowID returns the primary key of the underlying row.
func (h HistoryItem) RowID() uint {
	if h.Kind == HistoryKindMessage && h.Message != nil {
		return h.Message.ID
	}
	if h.Event != nil {
		return h.Event.ID
	}
	return 0
}
