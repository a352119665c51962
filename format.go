package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cinevault/cinevault/internal/media"
)

// Statusf prints a status message to the error stream unless --quiet.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if cc.Flags.Quiet {
		return
	}

	cc.statusMu.Lock()
	fmt.Fprintf(cc.ErrOut, format, args...)
	cc.statusMu.Unlock()
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

// recordJSON is the --json shape of a record.
type recordJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Director    string `json:"director,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Location    string `json:"location,omitempty"`
	Duration    string `json:"duration,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

func toRecordJSON(r media.Record) recordJSON {
	return recordJSON{
		ID:          string(r.ID),
		Type:        kindLabel(r.Kind),
		Title:       r.Title,
		Director:    r.Director,
		Budget:      r.Budget,
		Location:    r.Location,
		Duration:    r.Duration,
		ReleaseDate: r.ReleaseDate,
	}
}

func kindLabel(k media.Kind) string {
	if k == media.KindShow {
		return "show"
	}

	return "movie"
}

// printRecords renders records as JSON or as a table.
func printRecords(w io.Writer, records []media.Record, asJSON bool) error {
	if asJSON {
		out := make([]recordJSON, 0, len(records))
		for _, r := range records {
			out = append(out, toRecordJSON(r))
		}

		return printJSON(w, out)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No movies or shows yet.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			string(r.ID), kindLabel(r.Kind), r.Title, orDash(r.Director), orDash(r.ReleaseDate),
		})
	}

	printTable(w, []string{"ID", "TYPE", "TITLE", "DIRECTOR", "RELEASED"}, rows)

	return nil
}

// printRecordDetail writes every field of r, one per line.
func printRecordDetail(w io.Writer, r media.Record) {
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	printDraft(w, media.DraftFrom(r))
}

// printDraft writes the fields of an editable draft, one per line.
func printDraft(w io.Writer, d media.Draft) {
	fmt.Fprintf(w, "Type:      %s\n", kindLabel(d.Kind))
	fmt.Fprintf(w, "Title:     %s\n", orDash(d.Title))
	fmt.Fprintf(w, "Director:  %s\n", orDash(d.Director))
	fmt.Fprintf(w, "Budget:    %s\n", orDash(d.Budget))
	fmt.Fprintf(w, "Location:  %s\n", orDash(d.Location))
	fmt.Fprintf(w, "Duration:  %s\n", orDash(d.Duration))
	fmt.Fprintf(w, "Date:      %s\n", orDash(d.ReleaseDate))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// formatExpiry describes when t is reached, relative to now.
func formatExpiry(t, now time.Time) string {
	d := t.Sub(now).Round(time.Second)
	if d <= 0 {
		return fmt.Sprintf("expired %s ago (%s)", -d, t.Local().Format(time.DateTime))
	}

	return fmt.Sprintf("in %s (%s)", d, t.Local().Format(time.DateTime))
}

// printTable writes aligned columns. headers and each row must have the
// same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}
