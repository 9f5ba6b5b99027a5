package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(Options{Logger: zap.NewNop()}), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ready := NewServer(Options{Ready: func(context.Context) error { return nil }})
	rec := serve(t, ready, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	notReady := NewServer(Options{Ready: func(context.Context) error { return errors.New("browser down") }})
	rec = serve(t, notReady, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"browser down"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(Options{}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resolver_renders_in_flight")
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(Options{}), http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusNotFound, rec.Code)

	s := NewServer(Options{Status: func() any {
		return map[string]int{"total": 3, "done": 1}
	}})
	rec = serve(t, s, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{"total": 3, "done": 1}, body)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := NewServer(Options{})
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(Options{}).serveListener(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test probe
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeListenError(t *testing.T) {
	t.Parallel()

	err := NewServer(Options{}).Serve(context.Background(), "bad-address")
	require.Error(t, err)
}
