package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cinevault/cinevault/internal/tokenfile"
)

// Watch error backoff bounds.
const (
	watchErrInitBackoff = 100 * time.Millisecond
	watchErrMaxBackoff  = 5 * time.Second
)

// FileStore keeps the session in a 0600 JSON file (see tokenfile). The file
// is read once at open; afterwards the in-memory copy is authoritative until
// Reload picks up a change made by another process.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cur Session
}

// OpenFileStore loads the session file at path. A missing file yields an
// empty session, not an error.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tok, err := tokenfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &FileStore{path: path, logger: logger, cur: fromToken(tok)}

	logger.Debug("session file loaded",
		slog.String("path", path),
		slog.Bool("access", s.cur.HasAccess()),
		slog.Bool("refresh", s.cur.HasRefresh()),
	)

	return s, nil
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cur
}

// Set replaces the access token (and the refresh token when supplied) and
// persists the result. The in-memory session is updated even when the write
// fails so in-flight requests keep working; the error reports the lost
// persistence.
func (s *FileStore) Set(access, refresh string) error {
	s.mu.Lock()
	s.cur = merge(s.cur, access, refresh)
	next := s.cur
	s.mu.Unlock()

	if err := tokenfile.Save(s.path, next.Token()); err != nil {
		return fmt.Errorf("session: persisting: %w", err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()

	if err := tokenfile.Remove(s.path); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	return nil
}

func (s *FileStore) HasRefreshCapability() bool {
	return s.Get().HasRefresh()
}

func (s *FileStore) Close() error { return nil }

// Reload re-reads the session file. It reports whether the in-memory session
// changed.
func (s *FileStore) Reload() (bool, error) {
	tok, err := tokenfile.Load(s.path)
	if err != nil {
		return false, fmt.Errorf("session: %w", err)
	}

	next := fromToken(tok)

	s.mu.Lock()
	changed := next != s.cur
	s.cur = next
	s.mu.Unlock()

	return changed, nil
}

// Watch observes the session file's directory and calls onChange with the
// new session whenever another process rewrites or removes the file. Writes
// made through this store do not trigger onChange. Blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func(Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("session: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("session: watching %s: %w", dir, err)
	}

	base := filepath.Base(s.path)
	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Temp files from atomic writes share the directory.
			if filepath.Base(ev.Name) != base || ev.Op == fsnotify.Chmod {
				continue
			}

			s.handleFileEvent(ev, onChange)
			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("session watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errBackoff):
			}

			errBackoff = min(errBackoff*2, watchErrMaxBackoff)
		}
	}
}

func (s *FileStore) handleFileEvent(ev fsnotify.Event, onChange func(Session)) {
	changed, err := s.Reload()
	if err != nil {
		s.logger.Warn("reloading session file",
			slog.String("path", s.path),
			slog.String("op", ev.Op.String()),
			slog.String("error", err.Error()),
		)

		return
	}

	if !changed {
		return
	}

	cur := s.Get()
	s.logger.Info("session changed on disk",
		slog.String("path", s.path),
		slog.String("op", ev.Op.String()),
		slog.Bool("logged_in", cur.HasAccess()),
	)

	if onChange != nil {
		onChange(cur)
	}
}
