// Package testutil provides an in-process fake of the cinevault API and
// environment helpers shared by package tests and E2E tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var fakeSigningKey = []byte("cinevault-fake-api")

var fakeDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FakeMovie is a movie row as the fake server stores and serves it.
type FakeMovie struct {
	ID       int     `json:"id"`
	User     int     `json:"user"`
	Type     string  `json:"Type"`
	Title    string  `json:"Title"`
	Director string  `json:"Director"`
	Budget   string  `json:"Budget"`
	Location string  `json:"Location"`
	Duration string  `json:"Duration"`
	Year     *string `json:"year"`
}

// RecordedRequest is one request seen by FakeAPI.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

type fakeUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	password string
}

// FakeAPI is an in-process implementation of the CineVault REST API:
// JWT access/refresh tokens, user registration and a per-user movie list.
// Error bodies follow the server's {"detail": ...} and field-map shapes.
type FakeAPI struct {
	srv *httptest.Server

	refreshCalls atomic.Int32

	mu            sync.Mutex
	users         map[string]*fakeUser
	access        map[string]int
	refresh       map[string]int
	movies        []FakeMovie
	nextUser      int
	nextMovie     int
	issued        int
	requests      []RecordedRequest
	refreshDelay  time.Duration
	failRefresh   bool
	rotateRefresh bool
	accessTTL     time.Duration
}

// NewFakeAPI starts a FakeAPI; it is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:     make(map[string]*fakeUser),
		access:    make(map[string]int),
		refresh:   make(map[string]int),
		accessTTL: 5 * time.Minute,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/{$}", f.handleLogin)
	mux.HandleFunc("POST /token/refresh/{$}", f.handleRefresh)
	mux.HandleFunc("POST /users/{$}", f.handleRegister)
	mux.HandleFunc("GET /me/{$}", f.authed(f.handleMe))
	mux.HandleFunc("GET /movies/{$}", f.authed(f.handleList))
	mux.HandleFunc("POST /movies/{$}", f.authed(f.handleCreate))
	mux.HandleFunc("PUT /movies/{id}/{$}", f.authed(f.handleReplace))
	mux.HandleFunc("DELETE /movies/{id}/{$}", f.authed(f.handleDelete))

	f.srv = httptest.NewServer(f.record(mux))
	t.Cleanup(f.srv.Close)

	return f
}

// URL is the API root to hand to a client.
func (f *FakeAPI) URL() string {
	return f.srv.URL
}

// AddUser registers an account directly and returns its id.
func (f *FakeAPI) AddUser(username, email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return strconv.Itoa(f.addUserLocked(username, email, password).ID)
}

// IssueTokens mints a fresh pair for username, as a login would.
func (f *FakeAPI) IssueTokens(username string) (access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		panic("testutil: IssueTokens for unknown user " + username)
	}

	return f.issueAccessLocked(u.ID), f.issueRefreshLocked(u.ID)
}

// AddMovie stores m for the owner and returns its id.
func (f *FakeAPI) AddMovie(m FakeMovie) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextMovie++
	m.ID = f.nextMovie
	f.movies = append(f.movies, m)

	return strconv.Itoa(m.ID)
}

// Movies returns the stored movies of ownerID.
func (f *FakeAPI) Movies(ownerID string) []FakeMovie {
	f.mu.Lock()
	defer f.mu.Unlock()

	uid, _ := strconv.Atoi(ownerID)

	var out []FakeMovie
	for _, m := range f.movies {
		if m.User == uid {
			out = append(out, m)
		}
	}

	return out
}

// ExpireAccessTokens invalidates every issued access token.
func (f *FakeAPI) ExpireAccessTokens() {
	f.mu.Lock()
	f.access = make(map[string]int)
	f.mu.Unlock()
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (f *FakeAPI) RevokeRefreshTokens() {
	f.mu.Lock()
	f.refresh = make(map[string]int)
	f.mu.Unlock()
}

// SetRefreshDelay makes the refresh endpoint wait d before answering.
func (f *FakeAPI) SetRefreshDelay(d time.Duration) {
	f.mu.Lock()
	f.refreshDelay = d
	f.mu.Unlock()
}

// SetFailRefresh makes the refresh endpoint answer 401.
func (f *FakeAPI) SetFailRefresh(fail bool) {
	f.mu.Lock()
	f.failRefresh = fail
	f.mu.Unlock()
}

// SetRotateRefresh makes refresh return a new refresh token and revoke the
// presented one.
func (f *FakeAPI) SetRotateRefresh(rotate bool) {
	f.mu.Lock()
	f.rotateRefresh = rotate
	f.mu.Unlock()
}

// RefreshCalls is the number of requests to the refresh endpoint.
func (f *FakeAPI) RefreshCalls() int {
	return int(f.refreshCalls.Load())
}

// Requests returns every request seen so far, in arrival order.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)

	return out
}

// RequestsTo returns the requests whose path equals path.
func (f *FakeAPI) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest

	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}

	return out
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAllAndRestore(r)
		}

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          string(body),
		})
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if !decodeFakeBody(w, r, &req) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[req.Username]
	if !ok || u.password != req.Password {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})

		return
	}

	writeFakeJSON(w, http.StatusOK, map[string]string{
		"access":  f.issueAccessLocked(u.ID),
		"refresh": f.issueRefreshLocked(u.ID),
	})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	var req struct {
		Refresh string `json:"refresh"`
	}

	if !decodeFakeBody(w, r, &req) {
		return
	}

	f.mu.Lock()
	delay := f.refreshDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	uid, ok := f.refresh[req.Refresh]
	if f.failRefresh || !ok {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})

		return
	}

	resp := map[string]string{"access": f.issueAccessLocked(uid)}

	if f.rotateRefresh {
		delete(f.refresh, req.Refresh)
		resp["refresh"] = f.issueRefreshLocked(uid)
	}

	writeFakeJSON(w, http.StatusOK, resp)
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if !decodeFakeBody(w, r, &req) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fields := map[string][]string{}

	switch {
	case strings.TrimSpace(req.Username) == "":
		fields["username"] = []string{"This field may not be blank."}
	case f.users[req.Username] != nil:
		fields["username"] = []string{"A user with that username already exists."}
	}

	if req.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}

	if req.Email != "" && !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}

	if len(fields) > 0 {
		writeFakeJSON(w, http.StatusBadRequest, fields)
		return
	}

	writeFakeJSON(w, http.StatusCreated, f.addUserLocked(req.Username, req.Email, req.Password))
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, _ *http.Request, uid int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.ID == uid {
			writeFakeJSON(w, http.StatusOK, u)
			return
		}
	}

	writeFakeNotFound(w)
}

func (f *FakeAPI) handleList(w http.ResponseWriter, _ *http.Request, uid int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []FakeMovie{}
	for _, m := range f.movies {
		if m.User == uid {
			out = append(out, m)
		}
	}

	writeFakeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleCreate(w http.ResponseWriter, r *http.Request, uid int) {
	var m FakeMovie
	if !decodeFakeBody(w, r, &m) {
		return
	}

	if fields := validateFakeMovie(m); len(fields) > 0 {
		writeFakeJSON(w, http.StatusBadRequest, fields)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextMovie++
	m.ID = f.nextMovie
	m.User = uid
	f.movies = append(f.movies, m)

	writeFakeJSON(w, http.StatusCreated, m)
}

func (f *FakeAPI) handleReplace(w http.ResponseWriter, r *http.Request, uid int) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeFakeNotFound(w)
		return
	}

	var m FakeMovie
	if !decodeFakeBody(w, r, &m) {
		return
	}

	if fields := validateFakeMovie(m); len(fields) > 0 {
		writeFakeJSON(w, http.StatusBadRequest, fields)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.movies {
		if f.movies[i].ID == id && f.movies[i].User == uid {
			m.ID = id
			m.User = uid
			f.movies[i] = m
			writeFakeJSON(w, http.StatusOK, m)

			return
		}
	}

	writeFakeNotFound(w)
}

func (f *FakeAPI) handleDelete(w http.ResponseWriter, r *http.Request, uid int) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeFakeNotFound(w)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.movies {
		if f.movies[i].ID == id && f.movies[i].User == uid {
			f.movies = append(f.movies[:i], f.movies[i+1:]...)
			w.WriteHeader(http.StatusNoContent)

			return
		}
	}

	writeFakeNotFound(w)
}

// authed resolves the bearer token to a user id or answers 401.
func (f *FakeAPI) authed(h func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})

			return
		}

		f.mu.Lock()
		uid, valid := f.access[raw]
		f.mu.Unlock()

		if !valid {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})

			return
		}

		h(w, r, uid)
	}
}

func (f *FakeAPI) addUserLocked(username, email, password string) *fakeUser {
	f.nextUser++
	u := &fakeUser{ID: f.nextUser, Username: username, Email: email, password: password}
	f.users[username] = u

	return u
}

func (f *FakeAPI) issueAccessLocked(uid int) string {
	tok := f.signLocked(uid, "access", f.accessTTL)
	f.access[tok] = uid

	return tok
}

func (f *FakeAPI) issueRefreshLocked(uid int) string {
	tok := f.signLocked(uid, "refresh", 24*time.Hour)
	f.refresh[tok] = uid

	return tok
}

func (f *FakeAPI) signLocked(uid int, kind string, ttl time.Duration) string {
	f.issued++

	claims := jwt.MapClaims{
		"token_type": kind,
		"user_id":    uid,
		"jti":        fmt.Sprintf("%s-%d", kind, f.issued),
		"exp":        time.Now().Add(ttl).Unix(),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeSigningKey)
	if err != nil {
		panic(fmt.Sprintf("testutil: signing token: %v", err))
	}

	return tok
}

func validateFakeMovie(m FakeMovie) map[string][]string {
	fields := map[string][]string{}

	if strings.TrimSpace(m.Title) == "" {
		fields["Title"] = []string{"This field may not be blank."}
	}

	if m.Type != "Movie" && m.Type != "Shows" {
		fields["Type"] = []string{fmt.Sprintf("%q is not a valid choice.", m.Type)}
	}

	if m.Year != nil && !fakeDateRE.MatchString(*m.Year) {
		fields["year"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}

	return fields
}

func decodeFakeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
		return false
	}

	return true
}

func readAllAndRestore(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, err
}

func writeFakeNotFound(w http.ResponseWriter) {
	writeFakeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
