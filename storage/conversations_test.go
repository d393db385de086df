package storage

import (
	"testing"

	"khabarchat/models"
)

func TestGetConversationsAggregatesPreviewAndUnread(t *testing.T) {
	store := newTestStore(t)
	alice := mustCreateUser(t, store, "alice@example.com")
	bob := mustCreateUser(t, store, "bob@example.com")
	carol := mustCreateUser(t, store, "carol@example.com")

	mustSaveMessage(t, store, bob.ID, alice.ID, "old from bob")
	lastFromBob := mustSaveMessage(t, store, bob.ID, alice.ID, "latest from bob")
	mustSaveMessage(t, store, alice.ID, carol.ID, "to carol")

	conversations, err := store.GetConversations(alice.ID, models.SortLatest)
	if err != nil {
		t.Fatalf("GetConversations failed: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}

	// Latest activity first: carol's thread got the most recent message.
	if conversations[0].UserID != carol.ID {
		t.Fatalf("expected carol's conversation first, got user %d", conversations[0].UserID)
	}
	if conversations[0].UnreadCount != 0 {
		t.Fatalf("expected no unread in carol's thread, got %d", conversations[0].UnreadCount)
	}

	bobRow := conversations[1]
	if bobRow.UserID != bob.ID {
		t.Fatalf("expected bob's conversation second, got user %d", bobRow.UserID)
	}
	if bobRow.LastMessage != "latest from bob" {
		t.Fatalf("expected latest preview, got %q", bobRow.LastMessage)
	}
	if bobRow.LastMessageTime != lastFromBob.CreatedAt {
		t.Fatalf("expected preview time %d, got %d", lastFromBob.CreatedAt, bobRow.LastMessageTime)
	}
	if bobRow.LastSenderID != bob.ID {
		t.Fatalf("expected preview sender %d, got %d", bob.ID, bobRow.LastSenderID)
	}
	if bobRow.UnreadCount != 2 {
		t.Fatalf("expected 2 unread from bob, got %d", bobRow.UnreadCount)
	}
	if bobRow.Email != "bob@example.com" {
		t.Fatalf("expected counterpart email, got %q", bobRow.Email)
	}
}

func TestGetConversationsOnePerCounterpart(t *testing.T) {
	store := newTestStore(t)
	alice := mustCreateUser(t, store, "alice@example.com")
	bob := mustCreateUser(t, store, "bob@example.com")

	mustSaveMessage(t, store, alice.ID, bob.ID, "out")
	mustSaveMessage(t, store, bob.ID, alice.ID, "in")
	mustSaveMessage(t, store, alice.ID, bob.ID, "out again")

	conversations, err := store.GetConversations(alice.ID, models.SortLatest)
	if err != nil {
		t.Fatalf("GetConversations failed: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("expected exactly one conversation per counterpart, got %d", len(conversations))
	}
}

func TestGetConversationsUnreadResetAfterMarkRead(t *testing.T) {
	store := newTestStore(t)
	alice := mustCreateUser(t, store, "alice@example.com")
	bob := mustCreateUser(t, store, "bob@example.com")

	mustSaveMessage(t, store, bob.ID, alice.ID, "unread")

	if _, err := store.MarkMessagesRead(alice.ID, bob.ID); err != nil {
		t.Fatalf("MarkMessagesRead failed: %v", err)
	}

	conversations, err := store.GetConversations(alice.ID, models.SortLatest)
	if err != nil {
		t.Fatalf("GetConversations failed: %v", err)
	}
	if conversations[0].UnreadCount != 0 {
		t.Fatalf("expected unread count reset to 0, got %d", conversations[0].UnreadCount)
	}
}

func TestGetConversationsSortKeys(t *testing.T) {
	store := newTestStore(t)
	alice := mustCreateUser(t, store, "alice@example.com")
	bob := mustCreateUser(t, store, "bob@example.com")
	carol := mustCreateUser(t, store, "carol@example.com")

	mustSaveMessage(t, store, alice.ID, bob.ID, "older thread")
	mustSaveMessage(t, store, carol.ID, alice.ID, "newer thread, unread")

	oldest, err := store.GetConversations(alice.ID, models.SortOldest)
	if err != nil {
		t.Fatalf("GetConversations oldest failed: %v", err)
	}
	if oldest[0].UserID != bob.ID {
		t.Fatalf("expected oldest-first to start with bob, got user %d", oldest[0].UserID)
	}

	unread, err := store.GetConversations(alice.ID, models.SortUnread)
	if err != nil {
		t.Fatalf("GetConversations unread failed: %v", err)
	}
	if unread[0].UserID != carol.ID {
		t.Fatalf("expected unread-first to start with carol, got user %d", unread[0].UserID)
	}

	if _, err := store.GetConversations(alice.ID, "alphabetical"); err == nil {
		t.Fatalf("expected error for unknown sort key")
	}
}
