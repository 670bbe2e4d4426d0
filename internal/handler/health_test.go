package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (f fakeChecker) Ping(ctx context.Context) error {
	return f.err
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		cache      HealthChecker
		wantStatus int
		wantRedis  string
	}{
		{
			name:       "all_healthy",
			db:         fakeChecker{},
			cache:      fakeChecker{},
			wantStatus: http.StatusOK,
			wantRedis:  "ok",
		},
		{
			name:       "redis_not_configured_is_ready",
			db:         fakeChecker{},
			cache:      nil,
			wantStatus: http.StatusOK,
			wantRedis:  "not configured",
		},
		{
			name:       "db_down",
			db:         fakeChecker{err: errors.New("connection refused")},
			cache:      fakeChecker{},
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "ok",
		},
		{
			name:       "redis_down",
			db:         fakeChecker{},
			cache:      fakeChecker{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rec := httptest.NewRecorder()

			h.Readyz(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeBody(t, rec)
			checks, ok := body["checks"].(map[string]any)
			if !ok {
				t.Fatalf("expected checks object, got %v", body["checks"])
			}
			if checks["redis"] != tt.wantRedis {
				t.Errorf("expected redis check %q, got %v", tt.wantRedis, checks["redis"])
			}
		})
	}
}
