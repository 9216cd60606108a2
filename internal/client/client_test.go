package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/streamagent/streamchat-go/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginInstallsToken(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.c", body["email"])
			json.NewEncoder(w).Encode(client.TokenResponse{
				AccessToken: "tok-123",
				TokenType:   "bearer",
				ExpiresIn:   3600,
			})
		case "/api/auth/me":
			sawAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(client.User{ID: "u1", Email: "a@b.c"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	tok, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.AccessToken)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
	assert.Equal(t, "Bearer tok-123", sawAuth)
}

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("skip"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		io.WriteString(w, `{"conversations":[{"id":"c1","title":"First"}],"total":1}`)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	list, err := c.ListConversations(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "c1", list.Conversations[0].ID)
}

func TestConversationLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/conversations":
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":"c1","title":"New Chat"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/conversations/c1":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			io.WriteString(w, `{"id":"c1","title":"`+body["title"]+`"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/conversations/c1":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	conv, err := c.CreateConversation(ctx, client.CreateConversationInput{Title: "New Chat"})
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)

	conv, err = c.RenameConversation(ctx, "c1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", conv.Title)

	require.NoError(t, c.DeleteConversation(ctx, "c1"))
}

func TestListMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/c1/messages", r.URL.Path)
		io.WriteString(w, `{"messages":[{"id":"m1","role":"user","content":"hi"}],"total":1}`)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	list, err := c.ListMessages(context.Background(), "c1", 0, 50)
	require.NoError(t, err)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "user", list.Messages[0].Role)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, client.ErrUnauthorized},
		{"not found", http.StatusNotFound, client.ErrConversationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"nope"}`, tt.status)
			}))
			defer srv.Close()

			c := client.New(srv.URL)
			_, err := c.GetConversation(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/stream", r.URL.Path)

		var req client.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Content)
		assert.Empty(t, req.ConversationID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("X-Conversation-Id", "c-new")
		io.WriteString(w, "event: done\ndata: e30=\n\n")
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	s, err := c.OpenChatStream(context.Background(), client.ChatRequest{Content: "hello"})
	require.NoError(t, err)
	defer s.Body.Close()

	assert.Equal(t, "c-new", s.ConversationID)
	body, err := io.ReadAll(s.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: done")
}

func TestOpenChatStreamNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.OpenChatStream(context.Background(), client.ChatRequest{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestUnauthorizedRefreshesAndRetries(t *testing.T) {
	var convCalls int
	var seenAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conversations":
			convCalls++
			seenAuth = append(seenAuth, r.Header.Get("Authorization"))
			if convCalls == 1 {
				http.Error(w, "token expired", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(client.ConversationList{Total: 1})
		case "/api/auth/refresh":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refresh_token"])
			json.NewEncoder(w).Encode(client.TokenResponse{
				AccessToken:  "access-2",
				RefreshToken: "refresh-2",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetToken("access-1")
	c.SetRefreshToken("refresh-1")

	var persisted client.TokenResponse
	c.OnTokenRefresh(func(tokens client.TokenResponse) { persisted = tokens })

	list, err := c.ListConversations(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	require.Len(t, seenAuth, 2, "rejected call is retried exactly once")
	assert.Equal(t, "Bearer access-1", seenAuth[0])
	assert.Equal(t, "Bearer access-2", seenAuth[1])
	assert.Equal(t, "refresh-2", persisted.RefreshToken, "new pair reaches the persistence hook")
}

func TestUnauthorizedWithoutRefreshTokenSurfaces(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetToken("access-1")

	_, err := c.ListConversations(context.Background(), 0, 10)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, calls, "no retry without a refresh token")
}

func TestRejectedRefreshDoesNotRecurse(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls++
		}
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetToken("access-1")
	c.SetRefreshToken("refresh-1")

	_, err := c.ListConversations(context.Background(), 0, 10)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, refreshCalls, "a rejected refresh is not itself refreshed")
}
