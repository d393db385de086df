package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrInvalidCredentials indicates an email/password mismatch.
	ErrInvalidCredentials = errors.New("storage: invalid credentials")
	// ErrEmailTaken indicates the email already has an account.
	ErrEmailTaken = errors.New("storage: email already registered")
)

// User is the SQLite representation of an account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Joined       int64
}

// Message is the SQLite representation of a direct message. Timestamps are
// unix milliseconds.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Content     string
	Type        string
	IsRead      bool
	CreatedAt   int64
}

// ConversationRow is one aggregated conversation summary for a user:
// counterpart identity, denormalized last-message preview, and unread count.
type ConversationRow struct {
	UserID          int64
	Email           string
	UserJoined      int64
	LastMessage     string
	LastMessageTime int64
	LastSenderID    int64
	UnreadCount     int
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
