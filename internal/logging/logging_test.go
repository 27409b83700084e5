package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatter(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "probe slow\n",
		Data:    log.Fields{RequestIDField: "abcd1234", "zeta": 1, "alpha": "x"},
	}
	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-05-10 14:00:00] [abcd1234] [warn ] probe slow | alpha=x, zeta=1\n", string(out))

	entry = &log.Entry{Time: entry.Time, Level: log.InfoLevel, Message: "ok", Data: log.Fields{}}
	out, err = (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-05-10 14:00:00] [--------] [info ] ok\n", string(out))
}

func TestConfigureLogOutputToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, ConfigureLogOutput(true, dir))
	t.Cleanup(func() { _ = ConfigureLogOutput(false, "") })

	log.Info("written to file")
	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(false) })
	SetLevel(true)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	SetLevel(false)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Entry(c).Data[RequestIDField].(string)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 8)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", seen)
}
