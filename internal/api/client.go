package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/legalis-ai/legalis-go/internal/models"
)

// Client talks to the Legalis assistant backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new backend client.
// If baseURL is empty, uses the LEGALIS_API_URL env var or defaults to
// localhost:4000. The request timeout can be configured via
// LEGALIS_CLIENT_TIMEOUT (default 60s); a hung call must not hold the
// dispatcher's single-flight lock forever.
func New(baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("LEGALIS_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := 60 * time.Second
	if t := os.Getenv("LEGALIS_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatRequest is the payload for the assistant message endpoint.
// SessionID must be empty when no persisted session is targeted; the
// server then creates one and returns its id.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Category  string `json:"category,omitempty"`
}

// ChatResponse is the successful result of an assistant send.
type ChatResponse struct {
	Message   string
	SessionID string
	Metadata  *models.MessageMetadata
	Usage     map[string]any
}

// envelope is the generic success/failure wrapper all endpoints use.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// chatEnvelope is the wire form of the assistant message endpoint.
type chatEnvelope struct {
	Success   bool                    `json:"success"`
	Message   string                  `json:"message,omitempty"`
	SessionID string                  `json:"sessionId,omitempty"`
	Metadata  *models.MessageMetadata `json:"metadata,omitempty"`
	Usage     map[string]any          `json:"usage,omitempty"`
}

// do executes an HTTP request and decodes the response body into out.
// Transport failures map to ErrNetwork, 401 to ErrUnauthorized and any
// other non-2xx status to ErrServer.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapTransportError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend returned error status",
			"method", method, "path", path, "status", resp.Status)
		return wrapServerError(fmt.Sprintf("%s - %s", resp.Status, string(raw)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// SendMessage submits a user message to the assistant endpoint.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var env chatEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/assistant/chat", req, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, wrapServerError(env.Message)
	}
	if env.SessionID == "" && req.SessionID == "" {
		// The server is responsible for creating a session on the first
		// message; a success without an id cannot be reconciled.
		return nil, fmt.Errorf("%w: missing sessionId", ErrInvalidData)
	}
	return &ChatResponse{
		Message:   env.Message,
		SessionID: env.SessionID,
		Metadata:  env.Metadata,
		Usage:     env.Usage,
	}, nil
}

// ListSessions fetches the full session list. Entries lacking an id are
// dropped here so a single malformed record never poisons the list.
func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/assistant/sessions", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, wrapServerError(env.Message)
	}

	var sessions []models.Session
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &sessions); err != nil {
			return nil, fmt.Errorf("unmarshal sessions: %w", err)
		}
	}

	valid := sessions[:0]
	for _, s := range sessions {
		if s.ID == "" {
			c.logger.Warn("dropping session entry without id", "title", s.Title)
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}

// GetSession fetches the canonical session by id. A payload missing its
// id is rejected with ErrInvalidData.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/assistant/sessions/"+id, nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, wrapServerError(env.Message)
	}

	var sess models.Session
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("%w: missing _id", ErrInvalidData)
	}
	return &sess, nil
}

// DeleteSession issues a server-side delete. The caller must only drop
// local state after this returns nil; deletion is never optimistic.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	var env envelope
	if err := c.do(ctx, http.MethodDelete, "/api/assistant/sessions/"+id, nil, &env); err != nil {
		return err
	}
	if !env.Success {
		return wrapServerError(env.Message)
	}
	return nil
}

// Me fetches the authenticated user's profile with its plan tier and
// current usage counters. The quota gate evaluates this value; the
// engine never updates it.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, wrapServerError(env.Message)
	}

	var user models.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// SessionUpdate is a partial update of session preference fields.
type SessionUpdate struct {
	Title        *string               `json:"title,omitempty"`
	Status       *models.SessionStatus `json:"status,omitempty"`
	Satisfaction *models.Satisfaction  `json:"satisfaction,omitempty"`
}

// UpdateSession patches a session and returns the server-canonical copy
// for reconciliation.
func (c *Client) UpdateSession(ctx context.Context, id string, update SessionUpdate) (*models.Session, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPatch, "/api/assistant/sessions/"+id, update, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, wrapServerError(env.Message)
	}

	var sess models.Session
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("%w: missing _id", ErrInvalidData)
	}
	return &sess, nil
}
