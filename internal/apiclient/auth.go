package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"todoclient/internal/models"
)

// Login exchanges credentials for a token; the backend also sets the refresh cookie
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthPayload, error) {
	var payload models.AuthPayload
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{
		Email:    email,
		Password: password,
	}, &payload, callOptions{unsigned: true, noRetry: true})
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &EnvelopeError{Status: http.StatusOK, Message: "login response has no token", Err: ErrMalformedResponse}
	}
	return &payload, nil
}

// Register creates an account and signs it in
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthPayload, error) {
	var payload models.AuthPayload
	err := c.do(ctx, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &payload, callOptions{unsigned: true, noRetry: true})
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &EnvelopeError{Status: http.StatusOK, Message: "register response has no token", Err: ErrMalformedResponse}
	}
	return &payload, nil
}

// RefreshToken asks for a new access token using the refresh cookie.
// The data may be either {"token": "..."} or a bare string.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &raw, callOptions{unsigned: true, noRetry: true}); err != nil {
		return "", err
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		var payload models.TokenPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return "", &EnvelopeError{Status: http.StatusOK, Message: "malformed refresh response", Err: ErrMalformedResponse}
		}
		token = payload.Token
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", &EnvelopeError{Status: http.StatusOK, Message: "refresh response has no token", Err: ErrMalformedResponse}
	}
	return token, nil
}

// CurrentUser loads the profile of the signed-in user
func (c *Client) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user, callOptions{}); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, &EnvelopeError{Status: http.StatusOK, Message: "user response has no id", Err: ErrMalformedResponse}
	}
	return &user, nil
}

// Logout revokes the refresh cookie server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, callOptions{noRetry: true})
}
