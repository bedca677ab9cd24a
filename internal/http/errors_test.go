package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/apperr"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return env
}

func TestHTTPErrorHandlerMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind       apperr.Kind
		wantStatus int
	}{
		{apperr.BadRequest, http.StatusBadRequest},
		{apperr.Unauthenticated, http.StatusUnauthorized},
		{apperr.Forbidden, http.StatusForbidden},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Conflict, http.StatusConflict},
		{apperr.QuotaExceeded, http.StatusTooManyRequests},
		{apperr.RateLimited, http.StatusTooManyRequests},
		{apperr.UpstreamUnavailable, http.StatusServiceUnavailable},
		{apperr.Internal, http.StatusInternalServerError},
	}

	handler := NewHTTPErrorHandler(zap.NewNop())
	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			ctx, rec := newTestContext()
			handler(apperr.New(c.kind, "boom"), ctx)

			if rec.Code != c.wantStatus {
				t.Fatalf("expected status %d, got %d", c.wantStatus, rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Error.Code != string(c.kind) || env.Error.Message != "boom" {
				t.Fatalf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestHTTPErrorHandlerFallsBackToInternalForUnknownErrors(t *testing.T) {
	ctx, rec := newTestContext()
	handler := NewHTTPErrorHandler(zap.NewNop())

	handler(errors.New("totally unexpected"), ctx)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error.Code != string(apperr.Internal) {
		t.Fatalf("expected internal error code, got %q", env.Error.Code)
	}
}

func TestHTTPErrorHandlerCarriesDetails(t *testing.T) {
	ctx, rec := newTestContext()
	handler := NewHTTPErrorHandler(zap.NewNop())

	handler(apperr.WithDetails(apperr.QuotaExceeded, "limit reached", map[string]any{"limit": float64(5)}), ctx)

	env := decodeEnvelope(t, rec)
	if env.Error.Details["limit"] != float64(5) {
		t.Fatalf("expected details to round-trip, got %+v", env.Error.Details)
	}
}

func TestHTTPErrorHandlerSkipsCommittedResponses(t *testing.T) {
	ctx, rec := newTestContext()
	handler := NewHTTPErrorHandler(zap.NewNop())

	if err := ctx.String(http.StatusOK, "already written"); err != nil {
		t.Fatalf("write response: %v", err)
	}

	handler(apperr.New(apperr.Internal, "too late"), ctx)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the original committed status to be left alone, got %d", rec.Code)
	}
}
