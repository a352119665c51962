package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReleaseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"canonical unchanged", "2021-07-04", "2021-07-04", true},
		{"bare year", "2021", "2021-01-01", true},
		{"long month name", "July 4, 2021", "2021-07-04", true},
		{"short month name", "oct 7, 1970", "1970-10-07", true},
		{"slash date", "07/04/2021", "2021-07-04", true},
		{"surrounding space", "  1999  ", "1999-01-01", true},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"garbage", "not a date", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeReleaseDate(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditRoundTripIsIdempotent(t *testing.T) {
	for _, stored := range []string{"2021-01-01", "2021", "1984-06-30"} {
		t.Run(stored, func(t *testing.T) {
			d := DraftFrom(Record{ID: "1", Kind: KindMovie, Title: "Heat", ReleaseDate: stored})

			p, err := d.Normalize("u1")
			assert.NoError(t, err)

			want, _ := NormalizeReleaseDate(stored)
			assert.Equal(t, want, p.ReleaseDate)

			// A second trip through edit state changes nothing.
			again, err := DraftFrom(Record{Title: p.Title, ReleaseDate: p.ReleaseDate}).Normalize("u1")
			assert.NoError(t, err)
			assert.Equal(t, p.ReleaseDate, again.ReleaseDate)
		})
	}
}
