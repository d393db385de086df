// Package httpapi serves the messaging JSON API the client polls against.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"khabarchat/auth"
	"khabarchat/models"
	"khabarchat/storage"
	"khabarchat/transport"
)

// Server is the HTTP handler for the messaging API.
type Server struct {
	store    *storage.Store
	sessions *auth.Manager
	mux      *http.ServeMux
}

// NewServer wires all API routes over a store and session manager.
func NewServer(store *storage.Store, sessions *auth.Manager) *Server {
	s := &Server{
		store:    store,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/conversations", s.requireSession(s.handleConversations))
	s.mux.HandleFunc("GET /api/messages", s.requireSession(s.handleMessages))
	s.mux.HandleFunc("POST /api/messages/send", s.requireSession(s.handleSend))
	s.mux.HandleFunc("POST /api/messages/read", s.requireSession(s.handleMarkRead))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("[api] %s %s", r.Method, r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.Printf("[api] authenticate %q: %v", req.Email, err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.sessions.Issue(user.ID, time.Now())
	if err != nil {
		log.Printf("[api] issue session for user %d: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     transport.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.MaxAge().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user_id": user.ID,
		"email":   user.Email,
	})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request, userID int64) {
	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = models.SortLatest
	}

	rows, err := s.store.GetConversations(userID, sortKey)
	if err != nil {
		if validationFailed(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[api] get conversations for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}

	conversations := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		conversations = append(conversations, models.Conversation{
			UserID:          row.UserID,
			Email:           row.Email,
			UserJoined:      time.UnixMilli(row.UserJoined).UTC(),
			LastMessage:     row.LastMessage,
			LastMessageTime: time.UnixMilli(row.LastMessageTime).UTC(),
			LastSenderID:    row.LastSenderID,
			UnreadCount:     row.UnreadCount,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"conversations": conversations,
		"count":         len(conversations),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, userID int64) {
	counterpartID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || counterpartID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows, err := s.store.GetMessagesBetween(userID, counterpartID, limit, 0)
	if err != nil {
		log.Printf("[api] get messages between %d and %d: %v", userID, counterpartID, err)
		respondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, wireMessage(row))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		RecipientID int64  `json:"recipient_id"`
		Content     string `json:"content"`
		Type        string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := s.store.SaveMessage(userID, req.RecipientID, req.Content, req.Type)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "recipient not found")
			return
		}
		if validationFailed(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[api] save message from user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message_id": message.ID,
		"timestamp":  time.UnixMilli(message.CreatedAt).UTC(),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := s.store.MarkMessagesRead(userID, req.UserID); err != nil {
		log.Printf("[api] mark read for user %d from %d: %v", userID, req.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed to mark messages as read")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(transport.SessionCookieName)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := s.sessions.Parse(cookie.Value, time.Now())
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, userID)
	}
}

func wireMessage(row storage.Message) models.Message {
	return models.Message{
		ID:          row.ID,
		SenderID:    row.SenderID,
		RecipientID: row.RecipientID,
		Content:     row.Content,
		Type:        row.Type,
		IsRead:      row.IsRead,
		CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
	}
}

// validationFailed distinguishes caller mistakes from storage failures:
// validation errors come back unwrapped, storage failures are wrapped or
// sentinel errors.
func validationFailed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidCredentials) || errors.Is(err, storage.ErrEmailTaken) {
		return false
	}
	return errors.Unwrap(err) == nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}
