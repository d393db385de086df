// Package service exposes messaging operations behind a uniform result
// envelope: read and mutation calls never fail with a Go error, they report
// success or a human-readable error string instead. Views and pollers branch
// on the envelope without unwrapping transport details.
package service

import (
	"context"
	"time"

	"khabarchat/models"
	"khabarchat/transport"
)

// Fallback error strings used when the underlying failure carries no
// application message (a timeout, a refused connection, a bodyless 5xx).
const (
	errGetConversations = "Failed to get conversations"
	errGetMessages      = "Failed to get messages"
	errSendMessage      = "Failed to send message"
	errMarkRead         = "Failed to mark messages as read"
)

// API is the transport surface the service needs. *transport.Client
// satisfies it; tests substitute fakes.
type API interface {
	FetchConversations(ctx context.Context, sortKey string) (*transport.ConversationPage, error)
	FetchMessages(ctx context.Context, counterpartID int64, cursor transport.Cursor) (*transport.MessagePage, error)
	PostMessage(ctx context.Context, recipientID int64, content, messageType string) (*transport.SendReceipt, error)
	PostMarkRead(ctx context.Context, counterpartID int64) error
}

// Result is the common half of every operation envelope.
type Result struct {
	Success bool
	Error   string
}

// ConversationsResult carries a conversation list fetch outcome.
type ConversationsResult struct {
	Result
	Conversations []models.Conversation
	Count         int
}

// MessagesResult carries a message history fetch outcome.
type MessagesResult struct {
	Result
	Messages []models.Message
	Count    int
}

// SendResult carries a send acknowledgement.
type SendResult struct {
	Result
	MessageID int64
	Timestamp time.Time
}

// Service translates domain operations into transport calls. Construct one
// per client session; there is no process-wide instance.
type Service struct {
	api      API
	registry *registry
}

// New builds a service over the given transport.
func New(api API) *Service {
	return &Service{
		api:      api,
		registry: newRegistry(),
	}
}

// GetConversations fetches the conversation list ordered by sortKey
// ("latest" when empty).
func (s *Service) GetConversations(ctx context.Context, sortKey string) ConversationsResult {
	page, err := s.api.FetchConversations(ctx, sortKey)
	if err != nil {
		return ConversationsResult{Result: failure(err, errGetConversations)}
	}
	return ConversationsResult{
		Result:        Result{Success: true},
		Conversations: page.Conversations,
		Count:         page.Count,
	}
}

// GetMessages fetches the full message history with one counterpart. The
// backend has no pagination cursor yet; the transport signature already
// accepts one so this method can grow a cursor parameter without breaking
// callers.
func (s *Service) GetMessages(ctx context.Context, counterpartID int64) MessagesResult {
	page, err := s.api.FetchMessages(ctx, counterpartID, transport.Cursor{})
	if err != nil {
		return MessagesResult{Result: failure(err, errGetMessages)}
	}
	return MessagesResult{
		Result:   Result{Success: true},
		Messages: page.Messages,
		Count:    page.Count,
	}
}

// SendMessage persists one outbound message server-side and returns the
// assigned ID and timestamp. It does not touch local state; the caller owns
// the optimistic echo.
func (s *Service) SendMessage(ctx context.Context, recipientID int64, content, messageType string) SendResult {
	receipt, err := s.api.PostMessage(ctx, recipientID, content, messageType)
	if err != nil {
		return SendResult{Result: failure(err, errSendMessage)}
	}
	return SendResult{
		Result:    Result{Success: true},
		MessageID: receipt.MessageID,
		Timestamp: receipt.Timestamp,
	}
}

// MarkMessagesAsRead marks all inbound messages from the counterpart as
// read. Safe to call repeatedly; the server treats repeats as no-ops.
func (s *Service) MarkMessagesAsRead(ctx context.Context, counterpartID int64) Result {
	if err := s.api.PostMarkRead(ctx, counterpartID); err != nil {
		return failure(err, errMarkRead)
	}
	return Result{Success: true}
}

func failure(err error, fallback string) Result {
	if apiErr, ok := transport.AsAPIError(err); ok && apiErr.Message != "" {
		return Result{Error: apiErr.Message}
	}
	return Result{Error: fallback}
}
