package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ── ParsePagination ──────────────────────────────────────────────────

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"valid_custom", "limit=25&offset=10", 25, 10},
		{"limit_over_1000_falls_back", "limit=2000", 50, 0},
		{"limit_zero_falls_back", "limit=0", 50, 0},
		{"negative_offset_falls_back", "offset=-5", 50, 0},
		{"non_numeric_ignored", "limit=abc&offset=xyz", 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/?"+tt.query, nil)
			p := ParsePagination(req)
			if p.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

// ── PathInt64 ────────────────────────────────────────────────────────

func TestPathInt64(t *testing.T) {
	newReq := func(id string) *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("valid", func(t *testing.T) {
		n, err := PathInt64(newReq("42"), "id")
		if err != nil || n != 42 {
			t.Errorf("PathInt64 = (%d, %v), want (42, nil)", n, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := PathInt64(newReq("abc"), "id"); err == nil {
			t.Error("expected error for non-numeric ID")
		}
	})
}
