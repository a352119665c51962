package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Endpoints that never carry the bearer token.
const (
	tokenPath        = "/token/"
	tokenRefreshPath = "/token/refresh/" //nolint:gosec // G101: URL path, not a credential
	usersPath        = "/users/"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenPair is the body of /token/ and /token/refresh/. Refresh is empty
// when the server does not rotate it.
type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// postToken calls a token endpoint unauthenticated and decodes the pair.
func (g *Gateway) postToken(ctx context.Context, path string, body any) (tokenPair, error) {
	resp, err := g.postUnauthenticated(ctx, path, body)
	if err != nil {
		return tokenPair{}, err
	}
	defer resp.Body.Close()

	var pair tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return tokenPair{}, fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	if pair.Access == "" {
		return tokenPair{}, fmt.Errorf("api: %s response has no access token", path)
	}

	return pair, nil
}

// postUnauthenticated sends a JSON POST without the bearer token and
// converts non-2xx responses to *Error.
func (g *Gateway) postUnauthenticated(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	reqID := uuid.NewString()

	resp, err := g.send(ctx, http.MethodPost, path, payload, "", reqID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, readError(resp, reqID)
	}

	return resp, nil
}

// Login exchanges credentials for a new session and stores it, replacing any
// previous one. A 401 is reported as ErrInvalidCredentials and leaves the
// store untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	pair, err := c.gw.postToken(ctx, tokenPath, loginRequest{Username: username, Password: password})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			apiErr.Err = ErrInvalidCredentials
		}

		return fmt.Errorf("api: login: %w", err)
	}

	// Set keeps the stored refresh token when none is supplied; it belongs
	// to the previous login.
	if pair.Refresh == "" {
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("clearing previous session", slog.String("error", err.Error()))
		}
	}

	if err := c.store.Set(pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("api: login: saving session: %w", err)
	}

	c.logger.Info("login successful",
		slog.String("username", username),
		slog.Bool("refresh", pair.Refresh != ""),
	)

	return nil
}

// Register creates an account. Field problems come back as an *Error
// wrapping ErrValidation with Fields set. Registration does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	resp, err := c.gw.postUnauthenticated(ctx, usersPath, registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("api: register: %w", err)
	}
	defer resp.Body.Close()

	var u userResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("api: register: decoding response: %w", err)
	}

	c.logger.Info("account registered", slog.String("username", u.Username))

	user := u.toUser()

	return &user, nil
}

// Logout destroys the local session. The server keeps no session state.
func (c *Client) Logout() error {
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("api: logout: %w", err)
	}

	c.logger.Info("logged out")

	return nil
}
