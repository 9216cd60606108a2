// Package client provides an HTTP client for the Stream-Agent chat
// backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/streamagent/streamchat-go/internal/models"
)

// Client talks to the chat backend: conversation CRUD, auth, and the
// streamed chat endpoint.
type Client struct {
	baseURL      string
	token        string
	refreshToken string
	onRefresh    func(TokenResponse)
	httpClient   *http.Client

	// streamClient carries no timeout: a turn is open-ended and is
	// bounded only by caller cancellation.
	streamClient *http.Client
}

// New creates a backend client.
// If baseURL is empty, uses STREAMCHAT_SERVER_URL env var or defaults
// to localhost:8000. The CRUD timeout can be configured via
// STREAMCHAT_CLIENT_TIMEOUT (default 30s).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("STREAMCHAT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 30 * time.Second
	if t := os.Getenv("STREAMCHAT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// SetToken sets the bearer credential attached to every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetRefreshToken installs the refresh credential. With one installed,
// a request rejected with 401 is retried once after refreshing.
func (c *Client) SetRefreshToken(token string) {
	c.refreshToken = token
}

// OnTokenRefresh registers a callback invoked with each new credential
// pair, so the caller can persist it.
func (c *Client) OnTokenRefresh(fn func(TokenResponse)) {
	c.onRefresh = fn
}

// BaseURL returns the configured backend endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes a JSON request/response call against the backend. When
// the access token is rejected and a refresh token is on hand, the
// credentials are refreshed and the call retried once. Auth endpoints
// are exempt so a rejected refresh cannot recurse.
// result may be nil for calls without a response body.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	err := c.doOnce(ctx, method, path, payload, result)
	if errors.Is(err, ErrUnauthorized) && c.refreshToken != "" && !strings.HasPrefix(path, "/api/auth/") {
		if _, refreshErr := c.Refresh(ctx, c.refreshToken); refreshErr != nil {
			return err
		}
		return c.doOnce(ctx, method, path, payload, result)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// ConversationList is a paginated slice of sessions.
type ConversationList struct {
	Conversations []models.Session `json:"conversations"`
	Total         int              `json:"total"`
}

// ListConversations returns the caller's conversations, most recently
// updated first.
func (c *Client) ListConversations(ctx context.Context, skip, limit int) (*ConversationList, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var result ConversationList
	if err := c.do(ctx, http.MethodGet, "/api/conversations?"+q.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return &result, nil
}

// CreateConversationInput is the input for creating a conversation.
type CreateConversationInput struct {
	Title string `json:"title,omitempty"`
	Model string `json:"model,omitempty"`
}

// CreateConversation creates a new conversation.
func (c *Client) CreateConversation(ctx context.Context, input CreateConversationInput) (*models.Session, error) {
	var result models.Session
	if err := c.do(ctx, http.MethodPost, "/api/conversations", input, &result); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &result, nil
}

// GetConversation retrieves a conversation by id.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.Session, error) {
	var result models.Session
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &result, nil
}

// RenameConversation updates a conversation title.
func (c *Client) RenameConversation(ctx context.Context, id, title string) (*models.Session, error) {
	payload := map[string]string{"title": title}

	var result models.Session
	if err := c.do(ctx, http.MethodPut, "/api/conversations/"+url.PathEscape(id), payload, &result); err != nil {
		return nil, fmt.Errorf("rename conversation: %w", err)
	}
	return &result, nil
}

// DeleteConversation deletes a conversation and all its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// StoredMessage is one persisted transcript entry as returned by the
// conversation store.
type StoredMessage struct {
	ID        string                  `json:"id"`
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	ToolCalls []models.ToolInvocation `json:"toolCalls,omitempty"`
	Citations []models.Citation       `json:"citations,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// MessageList is a paginated slice of stored messages.
type MessageList struct {
	Messages []StoredMessage `json:"messages"`
	Total    int             `json:"total"`
}

// ListMessages returns the messages of a conversation in creation
// order.
func (c *Client) ListMessages(ctx context.Context, conversationID string, skip, limit int) (*MessageList, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()

	var result MessageList
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &result, nil
}
