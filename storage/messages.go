package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"khabarchat/models"
)

// SaveMessage inserts one outbound message and returns the stored row with
// its server-assigned ID and timestamp.
func (s *Store) SaveMessage(senderID, recipientID int64, content, messageType string) (*Message, error) {
	if senderID <= 0 {
		return nil, errors.New("sender_id is required")
	}
	if recipientID <= 0 {
		return nil, errors.New("recipient_id is required")
	}
	if senderID == recipientID {
		return nil, errors.New("cannot message yourself")
	}
	if content == "" {
		return nil, errors.New("content is required")
	}
	if messageType == "" {
		messageType = models.TypeText
	}
	if err := models.ValidateMessageType(messageType); err != nil {
		return nil, err
	}

	if _, err := s.GetUser(recipientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("recipient %d: %w", recipientID, ErrNotFound)
		}
		return nil, err
	}

	createdAt := nowUnixMilli()
	res, err := s.db.Exec(
		`INSERT INTO messages (sender_id, recipient_id, content, type, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		senderID,
		recipientID,
		content,
		messageType,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message from %d to %d: %w", senderID, recipientID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted message id: %w", err)
	}

	return &Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Type:        messageType,
		CreatedAt:   createdAt,
	}, nil
}

// GetMessagesBetween returns the conversation history between two users,
// ordered ascending by created_at then id. A limit <= 0 returns the full
// history.
func (s *Store) GetMessagesBetween(selfID, counterpartID int64, limit, offset int) ([]Message, error) {
	if selfID <= 0 {
		return nil, errors.New("self user id is required")
	}
	if counterpartID <= 0 {
		return nil, errors.New("counterpart user id is required")
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, sender_id, recipient_id, content, type, is_read, created_at
		FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		selfID, counterpartID,
		counterpartID, selfID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages between %d and %d: %w", selfID, counterpartID, err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	return messages, nil
}

// MarkMessagesRead flips is_read from 0 to 1 for every message from the counterpart
// to the reader. The flag never reverts; repeat calls affect zero rows.
func (s *Store) MarkMessagesRead(readerID, counterpartID int64) (int64, error) {
	if readerID <= 0 {
		return 0, errors.New("reader user id is required")
	}
	if counterpartID <= 0 {
		return 0, errors.New("counterpart user id is required")
	}

	res, err := s.db.Exec(
		`UPDATE messages
		SET is_read = 1
		WHERE recipient_id = ? AND sender_id = ? AND is_read = 0`,
		readerID,
		counterpartID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read from %d: %w", counterpartID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected for mark read: %w", err)
	}

	return rowsAffected, nil
}

// GetMessageByID fetches one message by its server-assigned ID.
func (s *Store) GetMessageByID(messageID int64) (*Message, error) {
	if messageID <= 0 {
		return nil, errors.New("message id is required")
	}

	row := s.db.QueryRow(
		`SELECT id, sender_id, recipient_id, content, type, is_read, created_at
		FROM messages
		WHERE id = ?`,
		messageID,
	)

	message, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get message %d: %w", messageID, err)
	}
	return message, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*Message, error) {
	var (
		message Message
		isRead  int
	)

	if err := row.Scan(
		&message.ID,
		&message.SenderID,
		&message.RecipientID,
		&message.Content,
		&message.Type,
		&isRead,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}

	message.IsRead = isRead == 1
	return &message, nil
}
