package models

import (
	"fmt"
	"time"
)

const (
	// SortLatest orders conversations by most recent activity first.
	SortLatest = "latest"
	// SortOldest orders conversations by least recent activity first.
	SortOldest = "oldest"
	// SortUnread orders conversations by unread count, then recency.
	SortUnread = "unread"
)

// Conversation is the denormalized one-to-one thread summary with a
// counterpart user. There is at most one Conversation per counterpart.
//
// Email and UserJoined are display metadata and immutable after creation;
// the Last* preview fields are overwritten on every new message.
type Conversation struct {
	UserID          int64     `json:"user_id"`
	Email           string    `json:"email"`
	UserJoined      time.Time `json:"user_joined"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	LastSenderID    int64     `json:"last_sender_id"`
	UnreadCount     int       `json:"unread_count"`
}

// ValidateSortKey rejects unknown conversation sort keys.
func ValidateSortKey(sortKey string) error {
	switch sortKey {
	case SortLatest, SortOldest, SortUnread:
		return nil
	default:
		return fmt.Errorf("invalid sort key %q", sortKey)
	}
}
