// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/traylinx/arya/internal/app"
	"github.com/traylinx/arya/internal/config"
	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/store"
	"github.com/traylinx/arya/internal/voice"
)

type fakeLLM struct{ err error }

func (f fakeLLM) Complete(_ context.Context, req providers.CompletionRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "You said: " + req.UserText, nil
}

type fakeImages struct{}

func (fakeImages) Generate(context.Context, string, string, int) ([][]byte, error) {
	return [][]byte{[]byte("png")}, nil
}

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(_ context.Context, text, voiceID string) ([]byte, error) {
	return []byte("mp3:" + voiceID + ":" + text), nil
}

func (fakeSpeech) CloneVoice(context.Context, string, string, []byte) (string, error) {
	return "cloned-1", nil
}

type fakeSearch struct{}

func (fakeSearch) Search(_ context.Context, query string, max int) ([]providers.SearchResult, error) {
	out := make([]providers.SearchResult, 0, max)
	for i := 0; i < max && i < 2; i++ {
		out = append(out, providers.SearchResult{Title: query, URL: "https://example.com"})
	}
	return out, nil
}

func (fakeSearch) Scrape(_ context.Context, pageURL string) (*providers.Page, error) {
	return &providers.Page{URL: pageURL, Title: "Example", Text: "hello", Links: []providers.Link{}}, nil
}

const testManagementKey = "open-sesame"

type testEnv struct {
	app     *app.App
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config), opts ...app.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	cfg.Scheduler.Autostart = false
	if mutate != nil {
		mutate(&cfg)
	}

	ok := diagnostics.CheckerFunc(func(context.Context) (string, error) { return "ok", nil })
	base := []app.Option{
		app.WithStore(store.NewMemory()),
		app.WithLLM(fakeLLM{}),
		app.WithImages(fakeImages{}),
		app.WithSpeech(fakeSpeech{}),
		app.WithSearch(fakeSearch{}),
		app.WithRegistry(prometheus.NewRegistry()),
		app.WithCheckers(diagnostics.Checkers{Store: ok, LLM: ok, Image: ok}),
	}
	a, err := app.New(context.Background(), &cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	return &testEnv{app: a, handler: NewServer(a).Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unknown", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodGet, "/api/diagnostics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["overall_health"])

	w = env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestChatAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/chat", gin.H{"user_id": "u1", "message": "good morning"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "You said: good morning", decode(t, w)["message"])

	w = env.do(t, http.MethodGet, "/api/history/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

	w = env.do(t, http.MethodGet, "/api/history/u1?limit=1", nil)
	assert.Len(t, decode(t, w)["messages"], 1)

	w = env.do(t, http.MethodDelete, "/api/history/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/history/u1", nil)
	assert.Empty(t, decode(t, w)["messages"])
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/chat", gin.H{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.app.Diagnostics.RecentErrors(10))
}

func TestChatFailureIsLoggedAndCounted(t *testing.T) {
	env := newTestEnv(t, nil, app.WithLLM(fakeLLM{err: errors.New("connection refused")}))

	w := env.do(t, http.MethodPost, "/api/chat", gin.H{"user_id": "u1", "message": "hi"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	counters := env.app.Diagnostics.Counters()
	assert.Equal(t, int64(1), counters.TotalRequests)
	assert.Equal(t, int64(1), counters.FailedRequests)

	w = env.do(t, http.MethodGet, "/api/errors?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "Chat Error", errs[0].(map[string]any)["type"])
	assert.EqualValues(t, 1, body["total"])
}

func TestChatDiagnosticIntent(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/chat", gin.H{"user_id": "u1", "message": "Please run a self diagnostic"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "thinking", body["emotion"])
	assert.NotNil(t, body["diagnostic_data"])
}

func TestMemoriesAndProfile(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/memories", gin.H{"user_id": "u1", "key": "pet", "value": "cat", "importance": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "created", decode(t, w)["status"])

	w = env.do(t, http.MethodPost, "/api/memories", gin.H{"user_id": "u1", "value": "dog"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/memories/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mems := decode(t, w)["memories"].([]any)
	require.Len(t, mems, 1)
	assert.Equal(t, "cat", mems[0].(map[string]any)["value"])

	w = env.do(t, http.MethodGet, "/api/profile/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode(t, w)["user_id"])

	w = env.do(t, http.MethodPost, "/api/profile", gin.H{"user_id": "u1", "name": "Sam"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sam", decode(t, w)["name"])
}

func TestGenerateImage(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/generate-image", gin.H{"user_id": "u1", "prompt": "a lighthouse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cG5n", decode(t, w)["image_base64"])
}

func cloneRequest(t *testing.T, sample []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Arya"))
	part, err := mw.CreateFormFile("audio_file", "sample.mp3")
	require.NoError(t, err)
	_, err = part.Write(sample)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/voice/clone", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVoiceLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/voice/generate", gin.H{"text": "hello"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = env.do(t, http.MethodGet, "/api/voice/id", nil)
	assert.Equal(t, false, decode(t, w)["established"])

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, cloneRequest(t, []byte("ID3")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cloned-1", decode(t, w)["voice_id"])

	w = env.do(t, http.MethodPost, "/api/voice/generate", gin.H{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "cloned-1", w.Header().Get(VoiceIDHeader))
	assert.Equal(t, "mp3:cloned-1:hello", w.Body.String())
}

func TestVoiceCloneRejectsEmptySample(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, cloneRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutonomousVoiceSelection(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/voice/autonomous-selection", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	selected := body["selected_voice"].(map[string]any)
	assert.Equal(t, "Rachel", selected["name"])
	assert.Len(t, body["searches"], len(voice.ResearchQueries))

	w = env.do(t, http.MethodGet, "/api/voice/id", nil)
	assert.Equal(t, voice.DefaultCandidates[0].ID, decode(t, w)["voice_id"])
}

func TestInternetSearchAndScrape(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/internet/search", gin.H{"query": "golang", "max_results": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["results"], 1)

	w = env.do(t, http.MethodPost, "/api/internet/search", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/internet/scrape?url=ftp://example.com", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/internet/scrape?url=https://example.com/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Example", decode(t, w)["title"])
}

func withManagementKey(t *testing.T) func(*config.Config) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testManagementKey), bcrypt.MinCost)
	require.NoError(t, err)
	return func(cfg *config.Config) { cfg.Management.SecretKey = string(hash) }
}

func TestManagementKeyGuardsRoutes(t *testing.T) {
	env := newTestEnv(t, withManagementKey(t))

	w := env.do(t, http.MethodPost, "/api/background/start", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/background/start", nil, ManagementKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.app.Scheduler.IsRunning())

	w = env.do(t, http.MethodPost, "/api/self-repair", nil, ManagementKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/background/start", nil, ManagementKeyHeader, testManagementKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.app.Scheduler.IsRunning())

	// read-only routes stay open
	w = env.do(t, http.MethodGet, "/api/background/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestManagementWithoutKeyIsLocalOnly(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/background/stop", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/background/stop", nil, "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/background/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackgroundLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/background/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["changed"])

	w = env.do(t, http.MethodPost, "/api/background/start", nil)
	assert.Equal(t, false, decode(t, w)["changed"])

	w = env.do(t, http.MethodGet, "/api/background/status", nil)
	status := decode(t, w)
	assert.Equal(t, true, status["is_running"])
	assert.EqualValues(t, 4, status["active_jobs"])

	w = env.do(t, http.MethodPost, "/api/background/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status = decode(t, w)["status"].(map[string]any)
	assert.Equal(t, false, status["is_running"])
	assert.EqualValues(t, 0, status["active_jobs"])
}

func TestBackgroundRunNow(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/background/run/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/background/run/memory_optimization", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode(t, w)
	assert.Equal(t, "success", rec["outcome"])
	assert.EqualValues(t, 0, rec["summary"].(map[string]any)["archived_count"])
}

func TestBackgroundStartWhenDisabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Scheduler.Enabled = false })

	w := env.do(t, http.MethodPost, "/api/background/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSelfRepair(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/self-repair", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Empty(t, body["repairs"])
	assert.Equal(t, "healthy", body["post_repair"].(map[string]any)["overall_health"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/api/health", nil)
	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `arya_http_requests_total{method="GET",route="/api/health",status="200"} 1`), body)
	assert.Contains(t, body, "arya_scheduler_running 0")
}
