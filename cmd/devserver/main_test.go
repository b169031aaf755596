package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/auth"
	"todoclient/internal/database"
	"todoclient/internal/models"
	"todoclient/internal/testutil"
)

func TestNewServerConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("USE_MEMORY_STORAGE", "true")
	t.Setenv("TLS_ENABLED", "true")

	cfg := newServerConfigFromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.UseMemory)
	assert.True(t, cfg.SecureCookie, "TLS implies secure cookies")
}

func TestRouterInMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	cfg := serverConfig{UseMemory: true}
	db, store, err := openStorage(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	router := newRouter(db, store, auth.NewService(db, auth.NewJWTConfigFromEnv()), cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, testutil.MakeJSONRequest(t, http.MethodPost, "/auth/register", models.RegisterRequest{
		Email:    "dev@example.com",
		Password: "SecurePass123",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := testutil.ParseEnvelope[models.AuthPayload](t, w).Data.Token

	req := testutil.MakeJSONRequest(t, http.MethodPost, "/todos", models.CreateTodoRequest{Title: "in memory"})
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = testutil.MakeJSONRequest(t, http.MethodPost, "/todos/get-todos", models.GetTodosRequest{})
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	payload := testutil.ParseEnvelope[models.TodosPayload](t, w).Data
	require.Len(t, payload.Todos, 1)
	assert.Equal(t, "in memory", payload.Todos[0].Title)
}
