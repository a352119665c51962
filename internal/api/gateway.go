package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cinevault/cinevault/internal/session"
)

const (
	requestIDHeader = "X-Request-ID"
	renewFlightKey  = "renew"
)

// State is the gateway's renewal state, shared by all requests.
type State int

const (
	StateIdle State = iota
	StateRenewing
	StateExpired // terminal until a new login re-seeds the session
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRenewing:
		return "renewing"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SessionStore provides and receives the credential pair. Defined at the
// consumer; session.FileStore, session.SQLiteStore and session.MemoryStore
// implement it.
type SessionStore interface {
	Get() session.Session
	Set(access, refresh string) error
	Clear() error
	HasRefreshCapability() bool
}

// Request describes one outbound call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Gateway executes authenticated requests. One Gateway owns one
// SessionStore; the renewal lock lives here and nowhere else.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore
	logger     *slog.Logger
	userAgent  string

	flight singleflight.Group

	mu    sync.Mutex
	state State
}

// NewGateway creates a Gateway for the API rooted at baseURL
// (e.g. "https://example.com/api").
func NewGateway(baseURL string, httpClient *http.Client, store SessionStore, logger *slog.Logger, userAgent string) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      store,
		logger:     logger,
		userAgent:  userAgent,
	}
}

// State returns the current renewal state.
func (g *Gateway) State() State {
	return g.observe(g.store.Get())
}

// Do executes req with the current access token attached. Any response that
// is not 401 is returned unchanged, success or not; the caller closes the
// body. A 401 triggers one shared renewal and a single retry. Errors wrap
// ErrSessionExpired when the session could not be renewed (the session has
// been cleared), ErrUnauthenticated when no token was attached, and
// ErrNetwork on transport failure.
func (g *Gateway) Do(ctx context.Context, req Request) (*http.Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	sess := g.store.Get()
	if g.observe(sess) == StateExpired {
		return nil, fmt.Errorf("%w: %s %s not sent", ErrSessionExpired, req.Method, req.Path)
	}

	return g.attempt(ctx, req, body, sess.AccessToken, false)
}

// attempt sends one try of req. retried is the request's retry marker: set
// on the re-issue after a renewal, it forbids any further renewal.
func (g *Gateway) attempt(ctx context.Context, req Request, body []byte, access string, retried bool) (*http.Response, error) {
	reqID := uuid.NewString()

	resp, err := g.send(ctx, req.Method, req.Path, body, access, reqID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		g.logger.Debug("request completed",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", reqID),
			slog.Bool("retried", retried),
		)

		return resp, nil
	}

	authErr := readError(resp, reqID)

	if access == "" {
		return nil, authErr
	}

	if retried {
		g.logger.Warn("request rejected after session renewal",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.String("request_id", reqID),
		)
		g.expire("retried request rejected")

		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, authErr)
	}

	fresh, err := g.renew(ctx, access)
	if err != nil {
		return nil, err
	}

	return g.attempt(ctx, req, body, fresh, true)
}

// renew returns a fresh access token to replace stale. Concurrent callers
// share one in-flight renewal and observe the same outcome. A caller whose
// context ends stops waiting; the renewal itself runs on.
func (g *Gateway) renew(ctx context.Context, stale string) (string, error) {
	ch := g.flight.DoChan(renewFlightKey, func() (any, error) {
		return g.doRenew(context.WithoutCancel(ctx), stale)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("api: request canceled: %w", ctx.Err())
	case res := <-ch:
		g.logger.Debug("renewal settled",
			slog.Bool("shared", res.Shared),
			slog.Bool("ok", res.Err == nil),
		)

		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	}
}

func (g *Gateway) doRenew(ctx context.Context, stale string) (string, error) {
	sess := g.store.Get()

	// Another request finished a renewal (or a teardown) after this one was
	// rejected.
	if sess.AccessToken != stale {
		if !sess.HasAccess() {
			return "", fmt.Errorf("%w: session cleared", ErrSessionExpired)
		}

		return sess.AccessToken, nil
	}

	if !sess.HasRefresh() {
		g.expire("no refresh token")
		return "", fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	}

	g.setState(StateRenewing)
	g.logger.Info("renewing session")

	pair, err := g.postToken(ctx, tokenRefreshPath, refreshRequest{Refresh: sess.RefreshToken})
	if err != nil {
		g.expire("renewal rejected")
		return "", fmt.Errorf("%w: renewal failed: %w", ErrSessionExpired, err)
	}

	if err := g.store.Set(pair.Access, pair.Refresh); err != nil {
		g.logger.Warn("failed to persist renewed session", slog.String("error", err.Error()))
	}

	g.setState(StateIdle)
	g.logger.Info("session renewed", slog.Bool("refresh_rotated", pair.Refresh != ""))

	return pair.Access, nil
}

// expire clears the session and moves to StateExpired.
func (g *Gateway) expire(reason string) {
	if err := g.store.Clear(); err != nil {
		g.logger.Warn("failed to clear session", slog.String("error", err.Error()))
	}

	g.setState(StateExpired)
	g.logger.Warn("session expired", slog.String("reason", reason))
}

// observe returns the state, leaving StateExpired once an access token has
// been stored again (login here or in another process).
func (g *Gateway) observe(sess session.Session) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateExpired && sess.HasAccess() {
		g.state = StateIdle
		g.logger.Info("session re-seeded")
	}

	return g.state
}

func (g *Gateway) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// send performs one HTTP exchange. access may be empty, in which case no
// Authorization header is sent.
func (g *Gateway) send(ctx context.Context, method, path string, body []byte, access, reqID string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	if access != "" {
		session.Session{AccessToken: access}.Token().SetAuthHeader(req)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}

	return resp, nil
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("api: encoding request body: %w", err)
	}

	return b, nil
}
