// Package media models the user's tracked movies and shows and keeps a local
// mirror of the remote list in step with create, update and delete calls.
package media

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ID is the server-assigned record identifier. Treated as opaque.
type ID string

// Kind is the record type. Values are the strings the server stores.
type Kind string

const (
	KindMovie Kind = "Movie"
	KindShow  Kind = "Shows"
)

// ErrTitleRequired is returned when a draft is submitted without a title.
var ErrTitleRequired = errors.New("media: title is required")

var kindFold = cases.Fold()

// ParseKind accepts the wire values and common spellings in any case.
// An empty string yields KindMovie, matching the default of a new draft.
func ParseKind(s string) (Kind, error) {
	switch kindFold.String(strings.TrimSpace(s)) {
	case "", "movie", "movies", "film":
		return KindMovie, nil
	case "show", "shows", "series", "tv":
		return KindShow, nil
	default:
		return "", fmt.Errorf("media: unknown type %q (want movie or show)", s)
	}
}

// Record is one tracked movie or show as the server returned it.
// ReleaseDate is a canonical YYYY-MM-DD string or empty when absent.
type Record struct {
	ID          ID
	Kind        Kind
	Title       string
	Director    string
	Budget      string
	Location    string
	Duration    string
	ReleaseDate string
	OwnerID     string
}

// Persisted reports whether the record carries a server-assigned id.
func (r Record) Persisted() bool {
	return r.ID != ""
}

// Draft is user-editable record state. ReleaseDate holds raw input and is
// normalized on submission.
type Draft struct {
	Kind        Kind
	Title       string
	Director    string
	Budget      string
	Location    string
	Duration    string
	ReleaseDate string
}

// Payload is a normalized draft ready for transmission. An empty ReleaseDate
// means the field is omitted.
type Payload struct {
	Kind        Kind
	Title       string
	Director    string
	Budget      string
	Location    string
	Duration    string
	ReleaseDate string
	OwnerID     string
}

// Normalize validates the draft and returns the submission payload for
// ownerID. Text fields are trimmed and NFC-normalized; the release date goes
// through NormalizeReleaseDate.
func (d Draft) Normalize(ownerID string) (Payload, error) {
	kind := d.Kind
	if kind == "" {
		kind = KindMovie
	}

	p := Payload{
		Kind:     kind,
		Title:    normalizeText(d.Title),
		Director: normalizeText(d.Director),
		Budget:   normalizeText(d.Budget),
		Location: normalizeText(d.Location),
		Duration: normalizeText(d.Duration),
		OwnerID:  ownerID,
	}

	if p.Title == "" {
		return Payload{}, ErrTitleRequired
	}

	if date, ok := NormalizeReleaseDate(d.ReleaseDate); ok {
		p.ReleaseDate = date
	}

	return p, nil
}

// DraftFrom loads a record into editable state. A bare year stored on the
// record is expanded so that saving an unedited draft reproduces the same
// canonical date.
func DraftFrom(r Record) Draft {
	return Draft{
		Kind:        r.Kind,
		Title:       r.Title,
		Director:    r.Director,
		Budget:      r.Budget,
		Location:    r.Location,
		Duration:    r.Duration,
		ReleaseDate: editableDate(r.ReleaseDate),
	}
}

// DraftFields lists the names accepted by SetField, in display order.
var DraftFields = []string{"type", "title", "director", "budget", "location", "duration", "date"}

// SetField assigns raw user input to the named field. "year" and "release"
// are accepted for "date".
func (d *Draft) SetField(name, value string) error {
	switch kindFold.String(strings.TrimSpace(name)) {
	case "type", "kind":
		k, err := ParseKind(value)
		if err != nil {
			return err
		}

		d.Kind = k
	case "title":
		d.Title = value
	case "director":
		d.Director = value
	case "budget":
		d.Budget = value
	case "location":
		d.Location = value
	case "duration":
		d.Duration = value
	case "date", "year", "release":
		d.ReleaseDate = value
	default:
		return fmt.Errorf("media: unknown field %q (want one of %s)", name, strings.Join(DraftFields, ", "))
	}

	return nil
}
