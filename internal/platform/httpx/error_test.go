package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"finitefield.org/orders-admin/internal/platform/requestctx"
)

func TestWriteErrorIncludesRequestAndTrace(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "abc123"})

	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NewError("mixed_currency", "records span USD, JPY\n", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"currencies": []string{"JPY", "USD"}, "status": 1}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "mixed_currency", body["error"])
	require.Equal(t, "records span USD, JPY", body["message"])
	require.Equal(t, float64(http.StatusUnprocessableEntity), body["status"])
	require.Equal(t, "req-42", body["request_id"])
	require.Equal(t, "abc123", body["trace_id"])
	require.Equal(t, []any{"JPY", "USD"}, body["currencies"])
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	t.Parallel()

	err := NewError("boom", "failed", 0)
	require.Equal(t, http.StatusInternalServerError, err.Status)

	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, err)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotContains(t, body, "request_id")
	require.NotContains(t, body, "trace_id")
}
