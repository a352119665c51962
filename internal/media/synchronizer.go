package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Synchronizer errors.
var (
	ErrNotLoaded     = errors.New("media: collection not loaded")
	ErrUnknownRecord = errors.New("media: record not in local collection")
	ErrMissingID     = errors.New("media: server returned record without id")
)

// Remote is the list resource the synchronizer mirrors. Implemented by
// api.Client; errors are returned to callers unchanged.
type Remote interface {
	ListMovies(ctx context.Context) ([]Record, error)
	CreateMovie(ctx context.Context, p Payload) (Record, error)
	ReplaceMovie(ctx context.Context, id ID, p Payload) (Record, error)
	DeleteMovie(ctx context.Context, id ID) error
}

// Synchronizer owns the local collection for the authenticated owner and
// applies server-confirmed mutations to it. Independent mutations are not
// serialized against each other: when two responses for the same id race,
// whichever arrives last decides the cached state.
type Synchronizer struct {
	remote Remote
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	owner   string
	coll    Collection
	editing ID // pending edit; empty when none
}

// NewSynchronizer creates a Synchronizer backed by remote.
func NewSynchronizer(remote Remote, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{remote: remote, logger: logger}
}

// LoadAll fetches ownerID's records and replaces the local collection
// wholesale. Must not run while other mutations for the same owner are in
// flight: its snapshot would overwrite their effects.
func (s *Synchronizer) LoadAll(ctx context.Context, ownerID string) ([]Record, error) {
	records, err := s.remote.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("media: loading records: %w", err)
	}

	return s.Replace(ownerID, records), nil
}

// Replace installs records fetched elsewhere as ownerID's collection, exactly
// as LoadAll does with its own fetch. Records owned by someone else are
// dropped. The pending edit is cleared.
func (s *Synchronizer) Replace(ownerID string, records []Record) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.OwnerID != "" && ownerID != "" && r.OwnerID != ownerID {
			s.logger.Warn("skipping record owned by another user",
				slog.String("id", string(r.ID)),
				slog.String("owner", r.OwnerID),
			)

			continue
		}

		kept = append(kept, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.owner = ownerID
	s.coll.replaceAll(kept)
	s.editing = ""

	s.logger.Debug("collection loaded",
		slog.String("owner", ownerID),
		slog.Int("records", len(kept)),
	)

	return s.coll.All()
}

// Records returns a snapshot of the local collection in display order.
func (s *Synchronizer) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.coll.All()
}

// Get looks up a record in the local collection.
func (s *Synchronizer) Get(id ID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.coll.Get(id)
}

// Owner returns the owner id the collection was loaded for.
func (s *Synchronizer) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.owner
}

// Create submits a new record. The collection is only touched once the
// server confirms; the confirmed record, carrying the server id, is
// prepended.
func (s *Synchronizer) Create(ctx context.Context, d Draft) (Record, error) {
	owner, err := s.loadedOwner()
	if err != nil {
		return Record{}, err
	}

	p, err := d.Normalize(owner)
	if err != nil {
		return Record{}, err
	}

	created, err := s.remote.CreateMovie(ctx, p)
	if err != nil {
		return Record{}, fmt.Errorf("media: creating %q: %w", p.Title, err)
	}

	if !created.Persisted() {
		return Record{}, ErrMissingID
	}

	s.mu.Lock()
	s.coll.prepend(created)
	s.mu.Unlock()

	s.logger.Info("record created", slog.String("id", string(created.ID)))

	return created, nil
}

// Update submits a full replacement for id and swaps the confirmed record
// into place. On failure (including a server-side not-found) the cached entry
// is left as it was.
func (s *Synchronizer) Update(ctx context.Context, id ID, d Draft) (Record, error) {
	owner, err := s.loadedOwner()
	if err != nil {
		return Record{}, err
	}

	p, err := d.Normalize(owner)
	if err != nil {
		return Record{}, err
	}

	updated, err := s.remote.ReplaceMovie(ctx, id, p)
	if err != nil {
		return Record{}, fmt.Errorf("media: updating %s: %w", id, err)
	}

	if updated.ID == "" {
		updated.ID = id
	}

	s.mu.Lock()
	if !s.coll.replace(updated) {
		s.logger.Debug("updated record no longer cached", slog.String("id", string(id)))
	}

	if s.editing == id {
		s.editing = ""
	}
	s.mu.Unlock()

	s.logger.Info("record updated", slog.String("id", string(id)))

	return updated, nil
}

// Delete removes id remotely, then locally. A record already absent from the
// local collection is not an error.
func (s *Synchronizer) Delete(ctx context.Context, id ID) error {
	if _, err := s.loadedOwner(); err != nil {
		return err
	}

	if err := s.remote.DeleteMovie(ctx, id); err != nil {
		return fmt.Errorf("media: deleting %s: %w", id, err)
	}

	s.mu.Lock()
	removed := s.coll.remove(id)

	if s.editing == id {
		s.editing = ""
	}
	s.mu.Unlock()

	s.logger.Info("record deleted",
		slog.String("id", string(id)),
		slog.Bool("was_cached", removed),
	)

	return nil
}

// BeginEdit marks id as the pending edit and returns its editable draft.
// Only one record is pending at a time; a new BeginEdit replaces the old.
func (s *Synchronizer) BeginEdit(id ID) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.coll.Get(id)
	if !ok {
		return Draft{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	s.editing = id

	return DraftFrom(r), nil
}

// CancelEdit clears the pending edit, if any.
func (s *Synchronizer) CancelEdit() {
	s.mu.Lock()
	s.editing = ""
	s.mu.Unlock()
}

// Editing returns the pending edit id.
func (s *Synchronizer) Editing() (ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.editing, s.editing != ""
}

// Save submits d as an update of the pending edit, or as a new record when
// nothing is being edited.
func (s *Synchronizer) Save(ctx context.Context, d Draft) (Record, error) {
	if id, ok := s.Editing(); ok {
		return s.Update(ctx, id, d)
	}

	return s.Create(ctx, d)
}

// Reset forgets the collection, owner and pending edit. Used on logout.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.owner = ""
	s.coll = Collection{}
	s.editing = ""
}

func (s *Synchronizer) loadedOwner() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return "", ErrNotLoaded
	}

	return s.owner, nil
}
