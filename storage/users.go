package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CreateUser registers an account with a bcrypt-hashed password and returns
// the stored row.
func (s *Store) CreateUser(email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	joined := nowUnixMilli()
	res, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, joined) VALUES (?, ?, ?)`,
		email,
		string(hash),
		joined,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user %q: %w", email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted user id: %w", err)
	}

	return &User{ID: id, Email: email, PasswordHash: string(hash), Joined: joined}, nil
}

// Authenticate checks an email/password pair and returns the matching user.
func (s *Store) Authenticate(email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.getUserBy(`SELECT id, email, password_hash, joined FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser fetches one account by ID.
func (s *Store) GetUser(userID int64) (*User, error) {
	return s.getUserBy(`SELECT id, email, password_hash, joined FROM users WHERE id = ?`, userID)
}

func (s *Store) getUserBy(query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRow(query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Joined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
