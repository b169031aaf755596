// Package testutil holds helpers shared by the backend tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"todoclient/internal/models"
)

var dbSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with the backend schema
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Todo{}), "Failed to migrate test database")
	return db
}

// CreateTestUser inserts an active user with an unusable password hash
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Username: strings.Split(email, "@")[0], PasswordHash: "$2a$10$test", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestTodo builds a todo owned by ownerID, created at the given time
func CreateTestTodo(ownerID, title string, completed bool, createdAt time.Time) *models.Todo {
	return &models.Todo{
		Title:     title,
		Completed: completed,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// MakeJSONRequest creates an HTTP request with a JSON body
func MakeJSONRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ParseEnvelope decodes a response envelope, putting its data into T
func ParseEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) models.Envelope[T] {
	t.Helper()
	var env models.Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// StringPtr returns a pointer to a string value
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}
