package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cinevault/cinevault/internal/media"
)

// Paths of the authenticated endpoints.
const (
	mePath     = "/me/"
	moviesPath = "/movies/"
)

// Client exposes typed calls for every API endpoint. Authenticated calls run
// through its Gateway.
type Client struct {
	gw     *Gateway
	store  SessionStore
	logger *slog.Logger
}

// NewClient creates a Client and its Gateway.
func NewClient(baseURL string, httpClient *http.Client, store SessionStore, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		gw:     NewGateway(baseURL, httpClient, store, logger, userAgent),
		store:  store,
		logger: logger,
	}
}

// Gateway returns the client's request gateway.
func (c *Client) Gateway() *Gateway {
	return c.gw
}

// LoggedIn reports whether an access token is stored.
func (c *Client) LoggedIn() bool {
	return c.store.Get().HasAccess()
}

// Me returns the authenticated principal.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u userResponse
	if err := c.do(ctx, Request{Method: http.MethodGet, Path: mePath}, &u); err != nil {
		return nil, fmt.Errorf("api: me: %w", err)
	}

	user := u.toUser()

	return &user, nil
}

// ListMovies returns the authenticated owner's records.
func (c *Client) ListMovies(ctx context.Context) ([]media.Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, Request{Method: http.MethodGet, Path: moviesPath}, &raw); err != nil {
		return nil, fmt.Errorf("api: list movies: %w", err)
	}

	movies, err := decodeMovieList(raw)
	if err != nil {
		return nil, fmt.Errorf("api: list movies: %w", err)
	}

	records := make([]media.Record, 0, len(movies))
	for _, m := range movies {
		records = append(records, m.toRecord())
	}

	return records, nil
}

// CreateMovie submits a new record and returns it with its server id.
func (c *Client) CreateMovie(ctx context.Context, p media.Payload) (media.Record, error) {
	var m movieResponse

	req := Request{Method: http.MethodPost, Path: moviesPath, Body: newMovieRequest(p)}
	if err := c.do(ctx, req, &m); err != nil {
		return media.Record{}, fmt.Errorf("api: create movie: %w", err)
	}

	return m.toRecord(), nil
}

// ReplaceMovie submits a full replacement for id.
func (c *Client) ReplaceMovie(ctx context.Context, id media.ID, p media.Payload) (media.Record, error) {
	var m movieResponse

	req := Request{Method: http.MethodPut, Path: moviePath(id), Body: newMovieRequest(p)}
	if err := c.do(ctx, req, &m); err != nil {
		return media.Record{}, fmt.Errorf("api: replace movie %s: %w", id, err)
	}

	return m.toRecord(), nil
}

// DeleteMovie removes id.
func (c *Client) DeleteMovie(ctx context.Context, id media.ID) error {
	if err := c.do(ctx, Request{Method: http.MethodDelete, Path: moviePath(id)}, nil); err != nil {
		return fmt.Errorf("api: delete movie %s: %w", id, err)
	}

	return nil
}

func moviePath(id media.ID) string {
	return moviesPath + url.PathEscape(string(id)) + "/"
}

// do runs req through the gateway and decodes a 2xx body into out (skipped
// when out is nil or the body is empty). Other statuses become *Error.
func (c *Client) do(ctx context.Context, req Request, out any) error {
	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return readError(resp, resp.Request.Header.Get(requestIDHeader))
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}

	return nil
}

func decodeMovieList(raw json.RawMessage) ([]movieResponse, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var movies []movieResponse
		if err := json.Unmarshal(raw, &movies); err != nil {
			return nil, fmt.Errorf("decoding movie list: %w", err)
		}

		return movies, nil
	}

	var page moviePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decoding movie page: %w", err)
	}

	return page.Results, nil
}
