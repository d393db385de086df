package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"khabarchat/models"
)

const (
	// SessionCookieName is the cookie carrying the session credential.
	SessionCookieName = "khabarchat_session"
	// DefaultRequestTimeout bounds a single API round-trip.
	DefaultRequestTimeout = 15 * time.Second
)

// APIError is an application-level failure reported by the backend, or a
// non-2xx response without a parseable body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// ConversationPage is the conversations fetch response.
type ConversationPage struct {
	Conversations []models.Conversation `json:"conversations"`
	Count         int                   `json:"count"`
}

// MessagePage is the message history fetch response.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// SendReceipt is the server acknowledgement for a sent message.
type SendReceipt struct {
	MessageID int64     `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Cursor reserves room for future message-history pagination. The zero value
// requests the full history, which is all the backend supports today.
type Cursor struct {
	AfterID int64
	Limit   int
}

// Client issues authenticated JSON requests against the messaging API.
type Client struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a client for the given API base URL. The session token is
// attached to every request as the session cookie; authentication itself is
// an external concern.
func NewClient(baseURL, sessionToken string, opts ...Option) *Client {
	client := &Client{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		httpClient:   &http.Client{Timeout: DefaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SetSessionToken replaces the session credential for subsequent requests.
func (c *Client) SetSessionToken(token string) {
	c.sessionToken = token
}

// FetchConversations fetches the conversation list ordered by sortKey.
func (c *Client) FetchConversations(ctx context.Context, sortKey string) (*ConversationPage, error) {
	if sortKey == "" {
		sortKey = models.SortLatest
	}
	if err := models.ValidateSortKey(sortKey); err != nil {
		return nil, err
	}

	var body struct {
		apiStatus
		ConversationPage
	}
	query := url.Values{"sort": {sortKey}}
	if err := c.get(ctx, "/api/conversations", query, &body); err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	return &body.ConversationPage, nil
}

// FetchMessages fetches message history with one counterpart, ordered
// ascending by created_at then id. A zero cursor requests the full history.
func (c *Client) FetchMessages(ctx context.Context, counterpartID int64, cursor Cursor) (*MessagePage, error) {
	query := url.Values{"user_id": {strconv.FormatInt(counterpartID, 10)}}
	if cursor.AfterID > 0 {
		query.Set("after_id", strconv.FormatInt(cursor.AfterID, 10))
	}
	if cursor.Limit > 0 {
		query.Set("limit", strconv.Itoa(cursor.Limit))
	}

	var body struct {
		apiStatus
		MessagePage
	}
	if err := c.get(ctx, "/api/messages", query, &body); err != nil {
		return nil, fmt.Errorf("fetch messages for user %d: %w", counterpartID, err)
	}
	return &body.MessagePage, nil
}

// PostMessage persists a new outbound message and returns the server receipt.
// It never appends to local state; the caller owns the optimistic echo.
func (c *Client) PostMessage(ctx context.Context, recipientID int64, content, messageType string) (*SendReceipt, error) {
	if messageType == "" {
		messageType = models.TypeText
	}
	if err := models.ValidateMessageType(messageType); err != nil {
		return nil, err
	}

	request := struct {
		RecipientID int64  `json:"recipient_id"`
		Content     string `json:"content"`
		Type        string `json:"type"`
	}{recipientID, content, messageType}

	var body struct {
		apiStatus
		SendReceipt
	}
	if err := c.post(ctx, "/api/messages/send", request, &body); err != nil {
		return nil, fmt.Errorf("send message to user %d: %w", recipientID, err)
	}
	return &body.SendReceipt, nil
}

// PostMarkRead marks every inbound message from the counterpart as read.
// Idempotent server-side.
func (c *Client) PostMarkRead(ctx context.Context, counterpartID int64) error {
	request := struct {
		UserID int64 `json:"user_id"`
	}{counterpartID}

	var body apiStatus
	if err := c.post(ctx, "/api/messages/read", request, &body); err != nil {
		return fmt.Errorf("mark messages read for user %d: %w", counterpartID, err)
	}
	return nil
}

type apiStatus struct {
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func (s apiStatus) status() apiStatus {
	return s
}

type statusCarrier interface {
	status() apiStatus
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out statusCarrier) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out statusCarrier) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out statusCarrier) error {
	if c.sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.sessionToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode response body: %w", err)
	}

	status := out.status()
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !status.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: status.Err}
	}
	return nil
}

// AsAPIError unwraps an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
