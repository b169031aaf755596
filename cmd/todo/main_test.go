package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/config"
	"todoclient/internal/models"
	"todoclient/internal/notify"
	"todoclient/internal/querycache"
)

// backend is a tiny stand-in for the todo API
type backend struct {
	mu       sync.Mutex
	valid    map[string]bool
	refreshs int
	todos    []models.Todo
}

func newBackend(n int) *backend {
	b := &backend{valid: map[string]bool{}}
	for i := 1; i <= n; i++ {
		b.todos = append(b.todos, models.Todo{ID: fmt.Sprint(i), Title: fmt.Sprintf("todo %d", i), Completed: i%3 == 0, CreatedAt: time.Now()})
	}
	return b
}

func writeEnvelope(w http.ResponseWriter, status int, env any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (b *backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.valid["t1"] = true
		b.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/auth", HttpOnly: true})
		writeEnvelope(w, http.StatusOK, models.OK("Login successful", models.AuthPayload{
			User:  models.UserProfile{ID: "u1", Email: "ann@example.com", Username: "ann"},
			Token: "t1",
		}))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("refresh_token")
		if err != nil || ck.Value != "r1" {
			writeEnvelope(w, http.StatusUnauthorized, models.Fail("Invalid refresh token"))
			return
		}
		b.mu.Lock()
		b.refreshs++
		b.valid["t2"] = true
		b.mu.Unlock()
		writeEnvelope(w, http.StatusOK, models.OK("Token refreshed", models.TokenPayload{Token: "t2"}))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, models.OK[any]("Logged out", nil))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, models.Fail("Unauthorized"))
			return
		}
		writeEnvelope(w, http.StatusOK, models.OK("ok", models.UserProfile{ID: "u1", Email: "ann@example.com", Username: "ann"}))
	})
	mux.HandleFunc("POST /todos/get-todos", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, models.Fail("Unauthorized"))
			return
		}
		var req models.GetTodosRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		start := min(req.Skip, len(b.todos))
		end := min(start+req.Limit, len(b.todos))
		writeEnvelope(w, http.StatusOK, models.OK("ok", models.TodosPayload{
			Todos:      b.todos[start:end],
			Pagination: models.Pagination{Page: req.Page, Limit: req.Limit, Total: len(b.todos), Skip: req.Skip},
		}))
	})
	return mux
}

type cli struct {
	url     string
	session string
	backend *backend
}

func newCLI(t *testing.T, todos int) *cli {
	t.Helper()
	b := newBackend(todos)
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	c := &cli{url: srv.URL, session: filepath.Join(t.TempDir(), "session.yaml"), backend: b}
	t.Setenv("TODO_SESSION_FILE", c.session)
	t.Setenv("TODO_API_URL", srv.URL)
	t.Setenv("LOG_FILE_ENABLED", "false")
	t.Setenv("LOG_STDOUT", "false")
	return c
}

func (c *cli) run(args ...string) (string, error) {
	listSearch, listStatus, listDate, listPages, listAll, listLimit = "", "all", "", 1, false, 0
	loginEmail, loginPassword = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginPersistsSession(t *testing.T) {
	c := newCLI(t, 0)

	out, err := c.run("login", "--email", "ann@example.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ann")

	state, err := config.LoadSession(c.session)
	require.NoError(t, err)
	assert.Equal(t, "t1", state.Token)
	assert.Equal(t, "r1", state.RefreshCookie)
	assert.Equal(t, c.url, state.APIURL)

	out, err = c.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ann@example.com")
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	c := newCLI(t, 25)
	require.NoError(t, config.SaveSession(c.session, &config.SessionState{APIURL: c.url, Token: "expired", RefreshCookie: "r1"}))

	out, err := c.run("list", "--limit", "10", "--pages", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "todo 1")
	assert.Contains(t, out, "todo 20")
	assert.NotContains(t, out, "todo 21")
	assert.Contains(t, out, "20 of 25 shown")
	assert.Equal(t, 1, c.backend.refreshs)

	state, err := config.LoadSession(c.session)
	require.NoError(t, err)
	assert.Equal(t, "t2", state.Token)
}

func TestListRequiresSession(t *testing.T) {
	c := newCLI(t, 3)

	_, err := c.run("list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = c.run("list", "--status", "done")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestLogoutRemovesSession(t *testing.T) {
	c := newCLI(t, 0)
	_, err := c.run("login", "--email", "ann@example.com", "--password", "secret123")
	require.NoError(t, err)

	out, err := c.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.NoFileExists(t, c.session)
}

type staticAPI struct{ todos []models.Todo }

func (s staticAPI) List(_ context.Context, p models.ListParams) (*models.Page, error) {
	start := min((p.Page-1)*p.Limit, len(s.todos))
	end := min(start+p.Limit, len(s.todos))
	return &models.Page{Items: s.todos[start:end], Number: p.Page, Limit: p.Limit, Total: len(s.todos)}, nil
}
func (staticAPI) Create(context.Context, models.CreateTodoRequest) (*models.Todo, error) {
	return nil, nil
}
func (staticAPI) Update(context.Context, string, models.UpdateTodoRequest) (*models.Todo, error) {
	return nil, nil
}
func (staticAPI) Delete(context.Context, string) error { return nil }
func (staticAPI) Toggle(context.Context, string, bool) (*models.Todo, error) {
	return nil, nil
}

func TestLoadPagesAndPrint(t *testing.T) {
	t.Run("all pages", func(t *testing.T) {
		api := staticAPI{todos: newBackend(7).todos}
		cache := querycache.New(api, querycache.WithPageSize(3), querycache.WithNotifier(notify.Discard{}))
		key := defaultKey()

		require.NoError(t, loadPages(context.Background(), cache, key, 1, true))
		assert.Len(t, cache.Pages(key), 3)

		var out bytes.Buffer
		printList(&out, cache.View(key), cache.Pages(key))
		assert.Contains(t, out.String(), "todo 7")
		assert.Contains(t, out.String(), "7 of 7 shown, 2 completed, 5 pending")
		assert.NotContains(t, out.String(), "more available")
	})

	t.Run("empty search", func(t *testing.T) {
		cache := querycache.New(staticAPI{}, querycache.WithPageSize(3))
		key := models.NewQueryKey("milk", models.Filter{})
		require.NoError(t, loadPages(context.Background(), cache, key, 2, false))

		var out bytes.Buffer
		printList(&out, cache.View(key), cache.Pages(key))
		assert.Contains(t, out.String(), "No todos found for the search term 'milk'.")
	})
}
