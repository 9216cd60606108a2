package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TokenResponse is the credential pair returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// User describes the authenticated account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Login authenticates with email and password. On success the
// credential pair is installed on the client for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	payload := map[string]string{"email": email, "password": password}

	var result TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", payload, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	c.install(result)
	return &result, nil
}

// Refresh exchanges a refresh token for a new credential pair and
// installs it. Called automatically by do on a rejected access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var result TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", payload, &result); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	c.install(result)
	return &result, nil
}

// install adopts a new credential pair and notifies the persistence
// hook, if any.
func (c *Client) install(tokens TokenResponse) {
	c.token = tokens.AccessToken
	if tokens.RefreshToken != "" {
		c.refreshToken = tokens.RefreshToken
	}
	if c.onRefresh != nil {
		c.onRefresh(tokens)
	}
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var result User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &result); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &result, nil
}
