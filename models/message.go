package models

import (
	"fmt"
	"time"
)

const (
	// TypeText is a plain text message body.
	TypeText = "text"
	// TypeImage is an inline image reference (data URI or upload path).
	TypeImage = "image"
	// TypeFile is an opaque file attachment reference.
	TypeFile = "file"
)

const (
	// StatusSent means the server acknowledged the message and assigned an ID.
	StatusSent = "sent"
	// StatusDelivered means the message was fetched into the recipient's store.
	StatusDelivered = "delivered"
	// StatusRead means the recipient's read acknowledgement round-tripped.
	StatusRead = "read"
)

// Message is one direct message between two users.
//
// ID is server-assigned and monotonically increasing; it doubles as the
// de-duplication and tie-break ordering key. Status is client-side bookkeeping
// and is never persisted by the backend in this form.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"is_read"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateMessageType rejects unknown message content types.
func ValidateMessageType(messageType string) error {
	switch messageType {
	case TypeText, TypeImage, TypeFile:
		return nil
	default:
		return fmt.Errorf("invalid message type %q", messageType)
	}
}

// ValidateMessageStatus rejects unknown client-side message statuses.
func ValidateMessageStatus(status string) error {
	switch status {
	case StatusSent, StatusDelivered, StatusRead:
		return nil
	default:
		return fmt.Errorf("invalid message status %q", status)
	}
}
