package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dasmlab/vaani/pkg/auth"
	"github.com/dasmlab/vaani/pkg/server"
	"github.com/dasmlab/vaani/pkg/service"
	"github.com/dasmlab/vaani/pkg/translate"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubTranslator struct {
	mu     sync.Mutex
	err    error
	prefix string
	calls  int

	// gate, when set, holds every call until it is closed.
	gate chan struct{}
}

func (s *stubTranslator) Translate(ctx context.Context, req translate.Request) ([]string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	out := make([]string, len(req.Data))
	for i, text := range req.Data {
		out[i] = s.prefix + text
	}
	return out, nil
}

func (s *stubTranslator) CheckHealth(ctx context.Context) error { return nil }

func (s *stubTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "fr"}, nil
}

func (s *stubTranslator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testServer struct {
	translator *stubTranslator
	queue      *service.JobQueue
	health     *server.HealthMonitor
	handler    http.Handler
}

func newTestServer(t *testing.T, checks map[string]server.CheckFunc) *testServer {
	t.Helper()

	logger := quietLogger()
	translator := &stubTranslator{prefix: "fr:"}

	languages := translate.NewLanguageTable(map[string]string{
		"French": "fr",
		"Hindi":  "hi",
	})

	svc := service.NewTranslationService(translator, languages, nil, "en", logger)
	queue := service.NewJobQueue(logger)
	queue.SetProcessor(service.NewJobProcessor(svc, time.Minute, logger))

	health := server.NewHealthMonitor(checks, time.Second, logger)

	srv := server.NewHTTPServer(server.Config{
		MaxUploadBytes: 1024,
		Service:        svc,
		JobQueue:       queue,
		Auth:           auth.Routes(auth.NewStaticProvider(""), logger),
		Health:         health,
		Logger:         logger,
	})

	return &testServer{
		translator: translator,
		queue:      queue,
		health:     health,
		handler:    srv.Handler(),
	}
}

func uploadRequest(t *testing.T, path, fileName string, content []byte, targetLanguage string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	if targetLanguage != "" {
		require.NoError(t, mw.WriteField("targetLanguage", targetLanguage))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadTranslatesSegments(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "/api/upload", "hello.txt", []byte("Hello. World."), "French"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var result service.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	require.Equal(t, []service.ResponseSegment{
		{ID: 0, OriginalText: "Hello", TranslatedText: "fr:Hello"},
		{ID: 1, OriginalText: "World", TranslatedText: "fr:World"},
	}, result.Segments)
	require.Equal(t, "fr:Hello. fr:World", result.TranslatedContent)
	require.Equal(t, 1, ts.translator.Calls())
}

func TestUploadResponseKeys(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "/api/upload", "a.txt", []byte("One."), "hindi"))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Contains(t, raw, "segments")
	require.Contains(t, raw, "translatedContent")

	segments := raw["segments"].([]any)
	require.Len(t, segments, 1)
	first := segments[0].(map[string]any)
	require.Contains(t, first, "id")
	require.Contains(t, first, "originalText")
	require.Contains(t, first, "translatedText")
}

func TestUploadEmptyDocument(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "/api/upload", "dots.txt", []byte(" . . "), "French"))
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Empty(t, result.Segments)
	require.Empty(t, result.TranslatedContent)
	require.Zero(t, ts.translator.Calls())
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantBody string
	}{
		{
			name: "no file part",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/upload", "", nil, "French")
			},
			wantCode: http.StatusBadRequest,
			wantBody: "No file uploaded.",
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/upload", "empty.txt", nil, "French")
			},
			wantCode: http.StatusBadRequest,
			wantBody: "No file uploaded.",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantCode: http.StatusBadRequest,
			wantBody: "No file uploaded.",
		},
		{
			name: "unsupported language",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/upload", "a.txt", []byte("Hello."), "Klingon")
			},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "unsupported language",
		},
		{
			name: "missing language",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/upload", "a.txt", []byte("Hello."), "")
			},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "unsupported language",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/upload", "big.txt", bytes.Repeat([]byte("word. "), 1000), "French")
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: "File too large.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			rec := ts.do(tt.req(t))
			require.Equal(t, tt.wantCode, rec.Code)
			require.Contains(t, rec.Body.String(), tt.wantBody)
			require.Zero(t, ts.translator.Calls())
		})
	}
}

func TestUploadProviderFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"timeout", fmt.Errorf("%w: deadline", translate.ErrProviderTimeout), http.StatusGatewayTimeout},
		{"unreachable", fmt.Errorf("%w: refused", translate.ErrProviderUnreachable), http.StatusServiceUnavailable},
		{"rejected", &translate.StatusError{StatusCode: http.StatusUnauthorized, Body: "bad key"}, http.StatusBadGateway},
		{"malformed", fmt.Errorf("%w: not json", translate.ErrMalformedResponse), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.translator.err = tt.err

			rec := ts.do(uploadRequest(t, "/api/upload", "a.txt", []byte("Hello. World."), "French"))
			require.Equal(t, tt.wantCode, rec.Code)
			require.NotContains(t, rec.Body.String(), "bad key")
		})
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Source    string            `json:"source"`
		Languages map[string]string `json:"languages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "en", body.Source)
	require.Equal(t, "fr", body.Languages["french"])
	require.Equal(t, "hi", body.Languages["hindi"])
}

func TestHealthAndReady(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		ts := newTestServer(t, map[string]server.CheckFunc{
			"translator": func(ctx context.Context) error { return nil },
		})

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"healthy"`)

		rec = ts.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing check", func(t *testing.T) {
		ts := newTestServer(t, map[string]server.CheckFunc{
			"translator": func(ctx context.Context) error { return nil },
			"mongo":      func(ctx context.Context) error { return errors.New("not connected") },
		})

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var health struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "degraded", health.Status)
		require.Equal(t, "ok", health.Checks["translator"])
		require.Equal(t, "not connected", health.Checks["mongo"])

		rec = ts.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestReadyServesCachedChecks(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool

	ts := newTestServer(t, map[string]server.CheckFunc{
		"translator": func(ctx context.Context) error {
			calls.Add(1)
			if failing.Load() {
				return errors.New("down")
			}
			return nil
		},
	})

	for i := 0; i < 5; i++ {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, int32(1), calls.Load())

	failing.Store(true)
	ts.health.Refresh(context.Background())

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"degraded"`)
	require.Equal(t, int32(2), calls.Load())
}

func TestAuthMounted(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "anonymous")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do(httptest.NewRequest(http.MethodGet, "/api/languages", nil))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "vaani_http_requests_total")
}

func TestMetricsCollapseUnmatchedRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/nope-a1", "/nope-b2", "/api/jobs/x/y/z"} {
		rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `route="unmatched"`)
	require.NotContains(t, body, "nope-a1")
	require.NotContains(t, body, "nope-b2")
	require.NotContains(t, body, "/api/jobs/x/y/z")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := ts.do(req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello. World."), "French"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.JobID)
	require.Equal(t, "/api/jobs/"+created.JobID, rec.Header().Get("Location"))

	var status struct {
		Status string               `json:"status"`
		Result service.UploadResult `json:"result"`
	}
	require.Eventually(t, func() bool {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.JobID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == string(service.JobStatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, "fr:Hello. fr:World", status.Result.TranslatedContent)
	require.Len(t, status.Result.Segments, 2)

	events := ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.JobID+"/events", nil))
	require.Equal(t, http.StatusOK, events.Code)
	require.Equal(t, "text/event-stream", events.Header().Get("Content-Type"))
	require.Contains(t, events.Body.String(), "event: status\n")
	require.Contains(t, events.Body.String(), `"status":"completed"`)
}

func TestCreateJobRejectsWhenQueueFull(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.translator.gate = make(chan struct{})
	ts.queue.SetLimits(2, 10)

	var ids []string
	for i := 0; i < 2; i++ {
		rec := ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello."), "French"))
		require.Equal(t, http.StatusAccepted, rec.Code)

		var created struct {
			JobID string `json:"job_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		ids = append(ids, created.JobID)
	}

	rec := ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello."), "French"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, 2, ts.queue.Len())

	close(ts.translator.gate)
	for _, id := range ids {
		require.Eventually(t, func() bool {
			rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
			return strings.Contains(rec.Body.String(), `"completed"`)
		}, 2*time.Second, 10*time.Millisecond)
	}

	rec = ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello."), "French"))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestJobFailureReportsMappedStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.translator.err = fmt.Errorf("%w: refused", translate.ErrProviderUnreachable)

	rec := ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello."), "French"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	var status struct {
		Status      string `json:"status"`
		Error       string `json:"error"`
		ErrorStatus int    `json:"error_status"`
	}
	require.Eventually(t, func() bool {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.JobID, nil))
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == string(service.JobStatusFailed)
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, http.StatusServiceUnavailable, status.ErrorStatus)
	require.NotContains(t, status.Error, "refused")
}

func TestJobRejectsUnsupportedLanguage(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "/api/jobs", "hello.txt", []byte("Hello."), "Klingon"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnknownJob(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist/events", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
