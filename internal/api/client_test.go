package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinevault/cinevault/internal/media"
	"github.com/cinevault/cinevault/internal/session"
	"github.com/cinevault/cinevault/testutil"
)

func strPtr(s string) *string { return &s }

func TestMe(t *testing.T) {
	_, client, _ := newFakeSession(t)

	u, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestListMovies_OnlyOwnRecords(t *testing.T) {
	fake, client, _ := newFakeSession(t)
	bob := fake.AddUser("bob", "", "pw")

	fake.AddMovie(testutil.FakeMovie{User: 1, Type: "Movie", Title: "Heat", Year: strPtr("1995-12-15")})
	fake.AddMovie(testutil.FakeMovie{User: 1, Type: "Shows", Title: "Dark"})
	fake.AddMovie(testutil.FakeMovie{User: mustAtoi(t, bob), Type: "Movie", Title: "Not mine"})

	recs, err := client.ListMovies(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, media.Record{
		ID: "1", Kind: media.KindMovie, Title: "Heat", ReleaseDate: "1995-12-15", OwnerID: "1",
	}, recs[0])
	assert.Equal(t, media.KindShow, recs[1].Kind)
	assert.Empty(t, recs[1].ReleaseDate, "null year becomes absent")
}

func TestListMovies_PaginatedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"next":null,"results":[{"id":"abc","user":7,"Type":"Movie","Title":"Ran","year":null}]}`))
	}))
	defer srv.Close()

	store := session.NewMemoryStore(session.Session{AccessToken: "a"})
	client := NewClient(srv.URL, http.DefaultClient, store, testLogger(), "")

	recs, err := client.ListMovies(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, media.ID("abc"), recs[0].ID)
	assert.Equal(t, "7", recs[0].OwnerID)
}

func TestCreateMovie_ServerAssignsID(t *testing.T) {
	fake, client, _ := newFakeSession(t)

	rec, err := client.CreateMovie(context.Background(), media.Payload{
		Kind:     media.KindShow,
		Title:    "Dark",
		Director: "Baran bo Odar",
		Budget:   "n/a",
		OwnerID:  "1",
	})
	require.NoError(t, err)
	assert.Equal(t, media.ID("1"), rec.ID)
	assert.Empty(t, rec.ReleaseDate)

	reqs := fake.RequestsTo(http.MethodPost, "/movies/")
	require.Len(t, reqs, 1)
	assert.NotContains(t, reqs[0].Body, `"year"`, "absent date is omitted")
	assert.Contains(t, reqs[0].Body, `"user":1`, "numeric owner id sent as number")

	stored := fake.Movies("1")
	require.Len(t, stored, 1)
	assert.Equal(t, "Baran bo Odar", stored[0].Director)
}

func TestCreateMovie_ValidationFields(t *testing.T) {
	_, client, _ := newFakeSession(t)

	_, err := client.CreateMovie(context.Background(), media.Payload{Kind: "Opera", Title: ""})
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"Title", "Type"}, apiErr.FieldNames())
}

func TestReplaceMovie(t *testing.T) {
	fake, client, _ := newFakeSession(t)
	id := fake.AddMovie(testutil.FakeMovie{User: 1, Type: "Movie", Title: "Heat"})

	rec, err := client.ReplaceMovie(context.Background(), media.ID(id), media.Payload{
		Kind: media.KindMovie, Title: "Heat", ReleaseDate: "1995-12-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "1995-12-15", rec.ReleaseDate)
	assert.Equal(t, "1995-12-15", *fake.Movies("1")[0].Year)
}

func TestReplaceMovie_NotFound(t *testing.T) {
	_, client, _ := newFakeSession(t)

	_, err := client.ReplaceMovie(context.Background(), "42", media.Payload{Kind: media.KindMovie, Title: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMovie(t *testing.T) {
	fake, client, _ := newFakeSession(t)
	id := fake.AddMovie(testutil.FakeMovie{User: 1, Type: "Movie", Title: "Heat"})

	require.NoError(t, client.DeleteMovie(context.Background(), media.ID(id)))
	assert.Empty(t, fake.Movies("1"))

	err := client.DeleteMovie(context.Background(), media.ID(id))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ImplementsRemote(t *testing.T) {
	var _ media.Remote = (*Client)(nil)
}

func TestMoviePath_Escapes(t *testing.T) {
	assert.Equal(t, "/movies/12/", moviePath("12"))
	assert.Equal(t, "/movies/a%2Fb/", moviePath("a/b"))
}
