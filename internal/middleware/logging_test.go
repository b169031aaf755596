package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	original := logging.Logger
	logging.Logger = logger
	t.Cleanup(func() { logging.Logger = original })

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		level logrus.Level
	}{
		{"/ok", logrus.InfoLevel},
		{"/missing", logrus.WarnLevel},
		{"/boom", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hook.Reset()
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "http", entry.Data["component"])
			assert.Equal(t, tt.path, entry.Data["path"])
			assert.Contains(t, entry.Data, "latency_ms")
		})
	}
}
