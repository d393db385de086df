package storage

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func mustCreateUser(t *testing.T, store *Store, email string) *User {
	t.Helper()

	user, err := store.CreateUser(email, "correct horse battery staple")
	if err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	return user
}

func mustSaveMessage(t *testing.T, store *Store, senderID, recipientID int64, content string) *Message {
	t.Helper()

	message, err := store.SaveMessage(senderID, recipientID, content, "")
	if err != nil {
		t.Fatalf("save message %q: %v", content, err)
	}
	return message
}
