package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cinevault/cinevault/internal/media"
)

// User is the authenticated principal.
type User struct {
	ID       string
	Username string
	Email    string
}

// flexID accepts ids sent as JSON numbers or strings and keeps them as
// opaque strings. Numeric ids are marshaled back as numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		*f = flexID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("api: id %s is neither number nor string", b)
	}

	*f = flexID(n.String())

	return nil
}

func (f flexID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}

	return json.Marshal(string(f))
}

type userResponse struct {
	ID       flexID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u userResponse) toUser() User {
	return User{ID: string(u.ID), Username: u.Username, Email: u.Email}
}

// movieResponse mirrors the server's movie JSON. Field names are the
// server's, capitalization included.
type movieResponse struct {
	ID       flexID  `json:"id"`
	User     flexID  `json:"user"`
	Type     string  `json:"Type"`
	Title    string  `json:"Title"`
	Director string  `json:"Director"`
	Budget   string  `json:"Budget"`
	Location string  `json:"Location"`
	Duration string  `json:"Duration"`
	Year     *string `json:"year"`
}

func (m movieResponse) toRecord() media.Record {
	r := media.Record{
		ID:       media.ID(m.ID),
		Kind:     media.Kind(m.Type),
		Title:    m.Title,
		Director: m.Director,
		Budget:   m.Budget,
		Location: m.Location,
		Duration: m.Duration,
		OwnerID:  string(m.User),
	}

	if m.Year != nil {
		r.ReleaseDate = *m.Year
	}

	return r
}

// movieRequest is the create/replace body. year is omitted when the draft
// had no usable date, never sent malformed.
type movieRequest struct {
	User     flexID `json:"user,omitempty"`
	Type     string `json:"Type"`
	Title    string `json:"Title"`
	Director string `json:"Director"`
	Budget   string `json:"Budget"`
	Location string `json:"Location"`
	Duration string `json:"Duration"`
	Year     string `json:"year,omitempty"`
}

func newMovieRequest(p media.Payload) movieRequest {
	return movieRequest{
		User:     flexID(p.OwnerID),
		Type:     string(p.Kind),
		Title:    p.Title,
		Director: p.Director,
		Budget:   p.Budget,
		Location: p.Location,
		Duration: p.Duration,
		Year:     p.ReleaseDate,
	}
}

// moviePage is the paginated list shape; plain arrays are also accepted.
type moviePage struct {
	Results []movieResponse `json:"results"`
}
