package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Keys in the session_kv table.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token" //nolint:gosec // G101: key name, not a credential
)

const (
	sqlGetValue = `SELECT value FROM session_kv WHERE key = ?`

	sqlUpsertValue = `INSERT INTO session_kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`

	sqlClearValues = `DELETE FROM session_kv`
)

// SQLiteStore keeps the session as opaque key/value rows in a SQLite
// database. Useful when the data directory already hosts other SQLite state
// or when file rename semantics are unreliable (network home directories).
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time

	mu  sync.RWMutex
	cur Session
}

// OpenSQLiteStore opens (creating if needed) the database at dbPath, applies
// migrations and loads the stored session.
func OpenSQLiteStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger, nowFunc: time.Now}

	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	access, err := s.value(ctx, keyAccessToken)
	if err != nil {
		return err
	}

	refresh, err := s.value(ctx, keyRefreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = Session{AccessToken: access, RefreshToken: refresh}
	s.mu.Unlock()

	return nil
}

func (s *SQLiteStore) value(ctx context.Context, key string) (string, error) {
	var v string

	err := s.db.QueryRowContext(ctx, sqlGetValue, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("session: reading %s: %w", key, err)
	}

	return v, nil
}

func (s *SQLiteStore) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cur
}

// Set writes the access token, and the refresh token when supplied, in one
// transaction. As with FileStore the in-memory session is updated first.
func (s *SQLiteStore) Set(access, refresh string) error {
	s.mu.Lock()
	s.cur = merge(s.cur, access, refresh)
	s.mu.Unlock()

	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.nowFunc().Unix()

	if _, err := tx.ExecContext(ctx, sqlUpsertValue, keyAccessToken, access, now); err != nil {
		return fmt.Errorf("session: writing access token: %w", err)
	}

	if refresh != "" {
		if _, err := tx.ExecContext(ctx, sqlUpsertValue, keyRefreshToken, refresh, now); err != nil {
			return fmt.Errorf("session: writing refresh token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: committing: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()

	if _, err := s.db.Exec(sqlClearValues); err != nil {
		return fmt.Errorf("session: clearing: %w", err)
	}

	return nil
}

func (s *SQLiteStore) HasRefreshCapability() bool {
	return s.Get().HasRefresh()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
