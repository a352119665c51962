// Package session holds the client's credential pair (short-lived access
// token plus optional refresh token) and the stores that keep it across
// process restarts. Stores hold the pair in memory so Get never fails; Set
// and Clear write through to the backend.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Session is the credential pair for the current client process. A zero
// Session means "logged out".
type Session struct {
	AccessToken  string
	RefreshToken string
}

// HasAccess reports whether an access token is present.
func (s Session) HasAccess() bool {
	return s.AccessToken != ""
}

// HasRefresh reports whether a refresh token is present.
func (s Session) HasRefresh() bool {
	return s.RefreshToken != ""
}

// IsZero reports whether both tokens are absent.
func (s Session) IsZero() bool {
	return s == Session{}
}

// Token returns the session as a bearer oauth2.Token.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
}

func fromToken(tok *oauth2.Token) Session {
	if tok == nil {
		return Session{}
	}

	return Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
}

// merge applies a Set call to cur: the access token is always replaced, the
// refresh token only when one is supplied.
func merge(cur Session, access, refresh string) Session {
	next := Session{AccessToken: access, RefreshToken: cur.RefreshToken}
	if refresh != "" {
		next.RefreshToken = refresh
	}

	return next
}

// Store is implemented by every session backend.
type Store interface {
	Get() Session
	Set(access, refresh string) error
	Clear() error
	HasRefreshCapability() bool
	Close() error
}

// Open returns the store for the named backend rooted at path.
func Open(ctx context.Context, backend, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case BackendFile, "":
		return OpenFileStore(path, logger)
	case BackendSQLite:
		return OpenSQLiteStore(ctx, path, logger)
	default:
		return nil, fmt.Errorf("session: unknown backend %q", backend)
	}
}
