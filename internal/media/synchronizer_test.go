package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemoteNotFound = errors.New("remote: not found")

// fakeRemote is an in-memory Remote. createGate, when set, blocks
// CreateMovie until the test closes it.
type fakeRemote struct {
	mu         sync.Mutex
	records    []Record
	nextID     int
	payloads   []Payload
	createGate chan struct{}
	listErr    error
}

func (f *fakeRemote) ListMovies(context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]Record, len(f.records))
	copy(out, f.records)

	return out, nil
}

func (f *fakeRemote) CreateMovie(_ context.Context, p Payload) (Record, error) {
	if f.createGate != nil {
		<-f.createGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.payloads = append(f.payloads, p)
	r := recordFromPayload(ID(fmt.Sprintf("srv-%d", f.nextID)), p)
	f.records = append(f.records, r)

	return r, nil
}

func (f *fakeRemote) ReplaceMovie(_ context.Context, id ID, p Payload) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.payloads = append(f.payloads, p)

	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i] = recordFromPayload(id, p)
			return f.records[i], nil
		}
	}

	return Record{}, errRemoteNotFound
}

func (f *fakeRemote) DeleteMovie(_ context.Context, id ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}

	return errRemoteNotFound
}

func (f *fakeRemote) lastPayload() Payload {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.payloads[len(f.payloads)-1]
}

func recordFromPayload(id ID, p Payload) Record {
	return Record{
		ID: id, Kind: p.Kind, Title: p.Title, Director: p.Director, Budget: p.Budget,
		Location: p.Location, Duration: p.Duration, ReleaseDate: p.ReleaseDate, OwnerID: p.OwnerID,
	}
}

func newTestSynchronizer(t *testing.T, seed ...Record) (*Synchronizer, *fakeRemote) {
	t.Helper()

	remote := &fakeRemote{records: seed}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return NewSynchronizer(remote, logger), remote
}

func TestLoadAll_ReplacesCollection(t *testing.T) {
	s, remote := newTestSynchronizer(t,
		Record{ID: "1", Title: "Heat", OwnerID: "u1"},
		Record{ID: "2", Title: "Ronin", OwnerID: "u1"},
	)

	got, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []ID{"1", "2"}, ids(got))

	remote.records = []Record{{ID: "3", Title: "Alien", OwnerID: "u1"}}

	_, err = s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []ID{"3"}, ids(s.Records()))
	assert.Equal(t, "u1", s.Owner())
}

func TestLoadAll_SkipsForeignRecords(t *testing.T) {
	s, _ := newTestSynchronizer(t,
		Record{ID: "1", OwnerID: "u1"},
		Record{ID: "2", OwnerID: "u2"},
		Record{ID: "3"},
	)

	got, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []ID{"1", "3"}, ids(got))
}

func TestLoadAll_ErrorLeavesCacheUnloaded(t *testing.T) {
	s, remote := newTestSynchronizer(t)
	remote.listErr = errors.New("boom")

	_, err := s.LoadAll(context.Background(), "u1")
	require.Error(t, err)

	_, err = s.Create(context.Background(), Draft{Title: "x"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestCreate_IsServerConfirmed(t *testing.T) {
	s, remote := newTestSynchronizer(t, Record{ID: "1", Title: "Heat"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	remote.createGate = make(chan struct{})

	type result struct {
		rec Record
		err error
	}

	done := make(chan result, 1)

	go func() {
		r, err := s.Create(context.Background(), Draft{Title: "Alien", ReleaseDate: "1979"})
		done <- result{r, err}
	}()

	// While the server has not answered the collection is unchanged.
	assert.Equal(t, []ID{"1"}, ids(s.Records()))

	close(remote.createGate)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, ID("srv-1"), res.rec.ID)
	assert.Equal(t, []ID{"srv-1", "1"}, ids(s.Records()), "created record is prepended")
	assert.Equal(t, "1979-01-01", remote.lastPayload().ReleaseDate)
	assert.Equal(t, "u1", remote.lastPayload().OwnerID)
}

func TestCreate_TitleRequiredSkipsNetwork(t *testing.T) {
	s, remote := newTestSynchronizer(t)
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	_, err = s.Create(context.Background(), Draft{Title: ""})
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.Empty(t, remote.payloads)
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	s, _ := newTestSynchronizer(t,
		Record{ID: "1", Title: "Heat"},
		Record{ID: "2", Title: "Ronin"},
	)
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	got, err := s.Update(context.Background(), "1", Draft{Title: "Heat (1995)", ReleaseDate: "1995-12-15"})
	require.NoError(t, err)
	assert.Equal(t, "Heat (1995)", got.Title)

	recs := s.Records()
	assert.Equal(t, []ID{"1", "2"}, ids(recs))
	assert.Equal(t, "Heat (1995)", recs[0].Title)
}

func TestUpdate_RemoteNotFoundLeavesCache(t *testing.T) {
	s, remote := newTestSynchronizer(t, Record{ID: "1", Title: "Heat"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	// Deleted elsewhere.
	remote.records = nil

	_, err = s.Update(context.Background(), "1", Draft{Title: "changed"})
	require.ErrorIs(t, err, errRemoteNotFound)

	r, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Heat", r.Title)
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	s, _ := newTestSynchronizer(t, Record{ID: "A"}, Record{ID: "X"}, Record{ID: "B"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "X"))
	assert.Equal(t, []ID{"A", "B"}, ids(s.Records()))
}

func TestDelete_LocallyAbsentIsNoop(t *testing.T) {
	s, remote := newTestSynchronizer(t, Record{ID: "A"}, Record{ID: "B"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	// Exists remotely but not in the local cache.
	remote.records = append(remote.records, Record{ID: "Z"})

	require.NoError(t, s.Delete(context.Background(), "Z"))
	assert.Equal(t, []ID{"A", "B"}, ids(s.Records()))
}

func TestDelete_RemoteErrorSurfaces(t *testing.T) {
	s, _ := newTestSynchronizer(t, Record{ID: "A"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	err = s.Delete(context.Background(), "gone")
	require.ErrorIs(t, err, errRemoteNotFound)
	assert.Equal(t, []ID{"A"}, ids(s.Records()))
}

func TestPendingEdit_SaveRoundTrip(t *testing.T) {
	s, remote := newTestSynchronizer(t, Record{ID: "1", Kind: KindShow, Title: "Dark", ReleaseDate: "2021-01-01"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	d, err := s.BeginEdit("1")
	require.NoError(t, err)
	assert.Equal(t, "2021-01-01", d.ReleaseDate)

	id, ok := s.Editing()
	require.True(t, ok)
	assert.Equal(t, ID("1"), id)

	// Save without modification.
	saved, err := s.Save(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "2021-01-01", saved.ReleaseDate)
	assert.Equal(t, "2021-01-01", remote.lastPayload().ReleaseDate)
	assert.Equal(t, KindShow, remote.lastPayload().Kind)

	_, ok = s.Editing()
	assert.False(t, ok, "save clears the pending edit")
	assert.Len(t, s.Records(), 1, "save of a pending edit does not create")
}

func TestPendingEdit_BareYearIsExpanded(t *testing.T) {
	s, _ := newTestSynchronizer(t, Record{ID: "1", Title: "Old", ReleaseDate: "1950"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	d, err := s.BeginEdit("1")
	require.NoError(t, err)
	assert.Equal(t, "1950-01-01", d.ReleaseDate)
}

func TestPendingEdit_ClearedByCancelAndDelete(t *testing.T) {
	s, _ := newTestSynchronizer(t, Record{ID: "1", Title: "a"}, Record{ID: "2", Title: "b"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	_, err = s.BeginEdit("1")
	require.NoError(t, err)
	s.CancelEdit()

	_, ok := s.Editing()
	assert.False(t, ok)

	_, err = s.BeginEdit("2")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), "1"))

	_, ok = s.Editing()
	assert.True(t, ok, "deleting another id keeps the pending edit")

	require.NoError(t, s.Delete(context.Background(), "2"))

	_, ok = s.Editing()
	assert.False(t, ok)
}

func TestBeginEdit_Unknown(t *testing.T) {
	s, _ := newTestSynchronizer(t)
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	_, err = s.BeginEdit("nope")
	assert.ErrorIs(t, err, ErrUnknownRecord)
}

func TestSave_WithoutPendingEditCreates(t *testing.T) {
	s, _ := newTestSynchronizer(t)
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	r, err := s.Save(context.Background(), Draft{Title: "New"})
	require.NoError(t, err)
	assert.True(t, r.Persisted())
	assert.Len(t, s.Records(), 1)
}

func TestReset(t *testing.T) {
	s, _ := newTestSynchronizer(t, Record{ID: "1"})
	_, err := s.LoadAll(context.Background(), "u1")
	require.NoError(t, err)

	s.Reset()

	assert.Empty(t, s.Records())
	assert.Empty(t, s.Owner())

	err = s.Delete(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestReplace_InstallsSnapshot(t *testing.T) {
	s, remote := newTestSynchronizer(t)

	got := s.Replace("u1", []Record{
		{ID: "1", OwnerID: "u1"},
		{ID: "2", OwnerID: "u9"},
	})
	assert.Equal(t, []ID{"1"}, ids(got))

	_, err := s.Create(context.Background(), Draft{Title: "Alien"})
	require.NoError(t, err)
	assert.Equal(t, "u1", remote.lastPayload().OwnerID)
}
