package storage

import (
	"errors"
	"testing"
)

func TestCreateUserNormalizesEmailAndHashesPassword(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser("  Reader@Example.COM ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "hunter2hunter2" || user.PasswordHash == "" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
	if user.Joined == 0 {
		t.Fatalf("expected joined timestamp to be set")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	mustCreateUser(t, store, "reader@example.com")

	_, err := store.CreateUser("reader@example.com", "another password")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	created := mustCreateUser(t, store, "reader@example.com")

	user, err := store.Authenticate("reader@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, user.ID)
	}

	if _, err := store.Authenticate("reader@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := store.Authenticate("nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetUser(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
