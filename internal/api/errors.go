// Package api is the client for the CineVault REST API. Every authenticated
// call goes through a Gateway, which attaches the bearer token, renews the
// session once on an authorization failure (one renewal shared by all
// concurrent callers) and tears the session down when renewal is impossible.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors. Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrUnauthenticated    = errors.New("api: unauthenticated")
	ErrSessionExpired     = errors.New("api: session expired")
	ErrInvalidCredentials = errors.New("api: invalid credentials")
	ErrValidation         = errors.New("api: validation failed")
	ErrBadRequest         = errors.New("api: bad request")
	ErrForbidden          = errors.New("api: forbidden")
	ErrNotFound           = errors.New("api: not found")
	ErrConflict           = errors.New("api: conflict")
	ErrThrottled          = errors.New("api: throttled")
	ErrServerError        = errors.New("api: server error")
	ErrNetwork            = errors.New("api: network error")
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Error is a non-2xx response. Fields holds the per-field messages of a
// validation failure, keyed by the server's field names.
type Error struct {
	StatusCode int
	RequestID  string
	Message    string
	Fields     map[string][]string
	Err        error // sentinel, for errors.Is()
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldNames returns the keys of Fields in sorted order.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// readError consumes and closes resp.Body and builds the matching *Error.
func readError(resp *http.Response, requestID string) *Error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		body = []byte("(failed to read response body)")
	}

	e := &Error{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Err:        classifyStatus(resp.StatusCode),
	}

	detail, fields := parseErrorBody(body)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		// 5xx bodies are often HTML debug pages.
		e.Message = http.StatusText(resp.StatusCode)
	case len(fields) > 0:
		e.Fields = fields
		e.Message = formatFields(e)

		if resp.StatusCode == http.StatusBadRequest {
			e.Err = ErrValidation
		}
	case detail != "":
		e.Message = detail
	default:
		e.Message = strings.TrimSpace(string(body))
	}

	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	return e
}

// parseErrorBody understands the two JSON error shapes the server produces:
// {"detail": "..."} and {"field": ["msg", ...] | "msg", ...}.
func parseErrorBody(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", nil
	}

	var detail string
	if d, ok := raw["detail"]; ok {
		_ = json.Unmarshal(d, &detail)
		delete(raw, "detail")
		delete(raw, "code")
		delete(raw, "messages")
	}

	fields := make(map[string][]string, len(raw))

	for k, v := range raw {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			fields[k] = list
			continue
		}

		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			fields[k] = []string{one}
			continue
		}

		fields[k] = []string{string(v)}
	}

	if len(fields) == 0 {
		return detail, nil
	}

	return detail, fields
}

func formatFields(e *Error) string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.FieldNames() {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}

	return strings.Join(parts, "; ")
}
