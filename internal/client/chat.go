package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ChatRequest is the body of a streamed chat call: the user content,
// an optional existing conversation id, optional inline attachments
// and optional per-call API key overrides, forwarded opaquely.
type ChatRequest struct {
	ConversationID string            `json:"conversationId,omitempty"`
	Content        string            `json:"content"`
	Images         []string          `json:"images,omitempty"`
	APIKeys        map[string]string `json:"apiKeys,omitempty"`
}

// ChatStream is an open streamed response. The caller owns Body and
// must close it; closing it is also the cancellation signal, no
// explicit cancel frame exists on the wire.
type ChatStream struct {
	// Body delivers the raw event stream bytes.
	Body io.ReadCloser

	// ConversationID is taken from the X-Conversation-Id response
	// header. The id inside the terminal frame takes precedence; this
	// is the fallback when that payload omits it.
	ConversationID string
}

// OpenChatStream issues the turn request and returns the open stream.
// A non-2xx status is returned as an error carrying the response body.
func (c *Client) OpenChatStream(ctx context.Context, chatReq ChatRequest) (*ChatStream, error) {
	b, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &ChatStream{
		Body:           resp.Body,
		ConversationID: resp.Header.Get("X-Conversation-Id"),
	}, nil
}
