// internal/middleware/logging_test.go
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/missing", entry.Data["path"])
	assert.Equal(t, logrus.InfoLevel, entry.Level)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	entry = hook.LastEntry()
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, logrus.DebugLevel, entry.Level)
}

func TestLogWebSocketDisconnect(t *testing.T) {
	logger, hook := test.NewNullLogger()

	LogWebSocketDisconnect(logger, "1.2.3.4:5", "/ws", nil)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	LogWebSocketDisconnect(logger, "1.2.3.4:5", "/ws", errors.New("reset"))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ws", hook.LastEntry().Data["path"])
}
