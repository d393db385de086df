package storage

import (
	"errors"
	"fmt"

	"khabarchat/models"
)

// GetConversations returns one row per counterpart the user has exchanged
// messages with: counterpart identity, the latest message preview, and the
// count of unread inbound messages. Materialized lazily: a counterpart
// appears the moment a first message exists in either direction.
func (s *Store) GetConversations(selfID int64, sortKey string) ([]ConversationRow, error) {
	if selfID <= 0 {
		return nil, errors.New("self user id is required")
	}
	if sortKey == "" {
		sortKey = models.SortLatest
	}
	if err := models.ValidateSortKey(sortKey); err != nil {
		return nil, err
	}

	var order string
	switch sortKey {
	case models.SortOldest:
		order = "last.created_at ASC, last.id ASC"
	case models.SortUnread:
		order = "unread DESC, last.created_at DESC, last.id DESC"
	default:
		order = "last.created_at DESC, last.id DESC"
	}

	query := fmt.Sprintf(
		`SELECT
			u.id,
			u.email,
			u.joined,
			last.content,
			last.created_at,
			last.sender_id,
			(SELECT COUNT(1) FROM messages
				WHERE sender_id = u.id AND recipient_id = ? AND is_read = 0) AS unread
		FROM users u
		JOIN messages last ON last.id = (
			SELECT id FROM messages
			WHERE (sender_id = ? AND recipient_id = u.id)
				OR (sender_id = u.id AND recipient_id = ?)
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		WHERE u.id != ?
		ORDER BY %s`,
		order,
	)

	rows, err := s.db.Query(query, selfID, selfID, selfID, selfID)
	if err != nil {
		return nil, fmt.Errorf("get conversations for user %d: %w", selfID, err)
	}
	defer rows.Close()

	conversations := make([]ConversationRow, 0)
	for rows.Next() {
		var row ConversationRow
		if err := rows.Scan(
			&row.UserID,
			&row.Email,
			&row.UserJoined,
			&row.LastMessage,
			&row.LastMessageTime,
			&row.LastSenderID,
			&row.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		conversations = append(conversations, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}

	return conversations, nil
}
