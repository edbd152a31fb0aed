package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/legalis-ai/legalis-go/internal/models"
)

// StreamEvent is one frame of a streamed assistant reply. The terminal
// frame (Done=true) carries the session id and metadata the plain POST
// endpoint would have returned in its envelope.
type StreamEvent struct {
	Token     string                  `json:"token,omitempty"`
	Done      bool                    `json:"done"`
	Error     *string                 `json:"error,omitempty"`
	SessionID string                  `json:"sessionId,omitempty"`
	Metadata  *models.MessageMetadata `json:"metadata,omitempty"`
	Usage     map[string]any          `json:"usage,omitempty"`
}

// SendMessageStream submits a user message over the websocket variant of
// the chat endpoint and streams the assistant reply token by token.
// The onToken callback is invoked per token; return an error to abort.
// The terminal event is returned as a ChatResponse so callers reconcile
// exactly as they would for SendMessage.
func (c *Client) SendMessageStream(
	ctx context.Context,
	req ChatRequest,
	onToken func(token string) error,
) (*ChatResponse, error) {
	wsURL := c.baseURL + "/api/assistant/chat/stream"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := map[string][]string{}
	if c.token != "" {
		header["Authorization"] = []string{"Bearer " + c.token}
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer conn.Close()

	// Track connection state so the cancellation goroutine and the
	// deferred close never double-close.
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	if err := conn.WriteJSON(req); err != nil {
		return nil, wrapTransportError(err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	var reply strings.Builder
	for {
		var event StreamEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, wrapTransportError(err)
		}

		if event.Error != nil {
			return nil, wrapServerError(*event.Error)
		}

		if event.Token != "" {
			reply.WriteString(event.Token)
			if onToken != nil {
				if err := onToken(event.Token); err != nil {
					return nil, err
				}
			}
		}

		if event.Done {
			if event.SessionID == "" && req.SessionID == "" {
				return nil, fmt.Errorf("%w: stream ended without sessionId", ErrInvalidData)
			}
			return &ChatResponse{
				Message:   reply.String(),
				SessionID: event.SessionID,
				Metadata:  event.Metadata,
				Usage:     event.Usage,
			}, nil
		}
	}
}
