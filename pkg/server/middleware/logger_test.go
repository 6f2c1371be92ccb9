package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_RecordsRouteAndPeriod(t *testing.T) {
	// Given
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(Logger(&logger))
	router.Get("/api/v1/periods/{period}/plan", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Debug().Msg("inside handler")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	// When
	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods/2024-03/plan?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Then
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inside map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	assert.Equal(t, "/api/v1/periods/2024-03/plan", inside["path"])
	assert.NotEmpty(t, inside["request_id"])

	var served map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &served))
	assert.Equal(t, "request served", served["message"])
	assert.Equal(t, "/api/v1/periods/{period}/plan", served["route"])
	assert.Equal(t, "2024-03", served["period"])
	assert.Equal(t, "5", served["limit"])
	assert.Equal(t, float64(http.StatusNotFound), served["status"])
	assert.Equal(t, float64(4), served["bytes"])
	assert.Equal(t, inside["request_id"], served["request_id"])
}

func TestLogger_ImplicitOKAndServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	router := chi.NewRouter()
	router.Use(Logger(&logger))
	router.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"status":200`)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.NotContains(t, lines[0], `"period"`)
	assert.Contains(t, lines[1], `"status":502`)
	assert.Contains(t, lines[1], `"level":"warn"`)
}
