package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

func TestRequestID(t *testing.T) {
	h := RequestID(logger.Nop())(okHandler())
	cases := []struct {
		in   string
		kept bool
	}{
		{"req-123", true},
		{"line\nbreak", false},
		{"has space", false},
		{"", false},
		{strings.Repeat("a", 129), false},
		{"caf\u00e9", false},
	}
	for _, tc := range cases {
		in, kept := tc.in, tc.kept
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, in)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		require.NotEmpty(t, got)
		if kept {
			assert.Equal(t, in, got)
		} else {
			assert.NotEqual(t, in, got)
		}
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	h := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), `"INTERNAL_ERROR"`)
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	h := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingPreservesStatus(t *testing.T) {
	h := Logging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, resp.Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://food.test/", "  "})(okHandler())

	preflight := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	preflight.Header.Set("Origin", "https://food.test")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, preflight)
	assert.Equal(t, "https://food.test", resp.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	foreign.Header.Set("Origin", "https://evil.test")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, foreign)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}
