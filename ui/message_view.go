// Package ui renders the messaging state to a terminal. It is deliberately
// thin: everything it knows about messages comes through store snapshots,
// and every mutation goes through the service.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"khabarchat/models"
	"khabarchat/service"
	"khabarchat/state"
)

// Messenger is the service surface the view needs.
type Messenger interface {
	GetMessages(ctx context.Context, counterpartID int64) service.MessagesResult
	SendMessage(ctx context.Context, recipientID int64, content, messageType string) service.SendResult
	MarkMessagesAsRead(ctx context.Context, counterpartID int64) service.Result
}

// MessageView drives the active conversation: it opens threads, sends with
// an optimistic local echo, and renders store snapshots.
type MessageView struct {
	svc    Messenger
	store  *state.Store
	selfID int64
}

// NewMessageView binds a view to a service and store for the given local
// user.
func NewMessageView(svc Messenger, store *state.Store, selfID int64) *MessageView {
	return &MessageView{svc: svc, store: store, selfID: selfID}
}

// Open activates a conversation: it loads the thread's history and
// acknowledges the inbound messages as read. The polling scheduler picks the
// new active conversation up on its next tick.
func (v *MessageView) Open(ctx context.Context, conv models.Conversation) error {
	v.store.Dispatch(state.SetActiveConversation{Conversation: &conv})
	v.store.Dispatch(state.SetMessagesLoading{CounterpartID: conv.UserID, Loading: true})

	result := v.svc.GetMessages(ctx, conv.UserID)
	if !result.Success {
		v.store.Dispatch(state.SetError{Err: result.Error})
		v.store.Dispatch(state.SetMessagesLoading{CounterpartID: conv.UserID, Loading: false})
		return errors.New(result.Error)
	}
	v.store.Dispatch(state.SetMessages{CounterpartID: conv.UserID, Messages: result.Messages})

	if ack := v.svc.MarkMessagesAsRead(ctx, conv.UserID); !ack.Success {
		v.store.Dispatch(state.SetError{Err: ack.Error})
		return errors.New(ack.Error)
	}
	return nil
}

// Close deactivates the current conversation.
func (v *MessageView) Close() {
	v.store.Dispatch(state.SetActiveConversation{Conversation: nil})
}

// Send submits a message to the active conversation. On success the sent
// message is echoed into local state immediately with status "sent" instead
// of waiting for the next poll; on failure the error is both recorded in the
// store and returned so the caller can show inline feedback.
func (v *MessageView) Send(ctx context.Context, content, messageType string) error {
	snapshot := v.store.Snapshot()
	if snapshot.Active == nil {
		return errors.New("no active conversation")
	}
	counterpartID := snapshot.Active.UserID

	result := v.svc.SendMessage(ctx, counterpartID, content, messageType)
	if !result.Success {
		v.store.Dispatch(state.SetError{Err: result.Error})
		return errors.New(result.Error)
	}

	if messageType == "" {
		messageType = models.TypeText
	}
	v.store.Dispatch(state.AddMessage{
		CounterpartID: counterpartID,
		Message: models.Message{
			ID:          result.MessageID,
			SenderID:    v.selfID,
			RecipientID: counterpartID,
			Content:     content,
			Type:        messageType,
			Status:      models.StatusSent,
			CreatedAt:   result.Timestamp,
		},
	})
	return nil
}

// Render writes the conversation list and the active thread as text.
func (v *MessageView) Render(w io.Writer) {
	snapshot := v.store.Snapshot()

	fmt.Fprintln(w, "Conversations")
	if len(snapshot.Conversations) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, conv := range snapshot.Conversations {
		marker := " "
		if snapshot.Active != nil && snapshot.Active.UserID == conv.UserID {
			marker = "*"
		}
		badge := ""
		if conv.UnreadCount > 0 {
			badge = fmt.Sprintf(" [%d unread]", conv.UnreadCount)
		}
		fmt.Fprintf(w, "%s [%d] %s%s - %s\n", marker, conv.UserID, conv.Email, badge, conv.LastMessage)
	}

	if snapshot.Active == nil {
		return
	}

	fmt.Fprintf(w, "\nThread with %s\n", snapshot.Active.Email)
	if snapshot.Loading.Messages[snapshot.Active.UserID] {
		fmt.Fprintln(w, "  loading...")
	}
	for _, msg := range snapshot.Messages[snapshot.Active.UserID] {
		who := "them"
		if msg.SenderID == v.selfID {
			who = "me"
		}
		flags := ""
		if msg.Status != "" {
			flags = " (" + msg.Status + ")"
		}
		if msg.IsRead && msg.SenderID == v.selfID {
			flags = " (read)"
		}
		fmt.Fprintf(w, "  %s %s: %s%s\n", msg.CreatedAt.Format(time.TimeOnly), who, msg.Content, flags)
	}

	if snapshot.Err != "" {
		fmt.Fprintf(w, "\n! %s\n", snapshot.Err)
	}
}
