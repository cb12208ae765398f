package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	analyticsstore "github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
)

func TestListSessionsEmpty(t *testing.T) {
	handler := New(analyticsstore.NewMemoryStore())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/analytics/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Sessions []analyticsstore.SessionRecord `json:"sessions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Sessions == nil || len(body.Sessions) != 0 {
		t.Fatalf("expected empty sessions array, got %v", body.Sessions)
	}
}

func TestListSessionsPreservesOrder(t *testing.T) {
	store := analyticsstore.NewMemoryStore()
	for _, id := range []string{"one", "two"} {
		end := time.Now().UTC()
		store.Save(analyticsstore.SessionRecord{SessionID: id, StartTime: end.Add(-time.Minute), EndTime: &end})
	}

	handler := New(store)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/analytics/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body struct {
		Sessions []analyticsstore.SessionRecord `json:"sessions"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if len(body.Sessions) != 2 || body.Sessions[0].SessionID != "one" {
		t.Fatalf("unexpected sessions payload: %+v", body.Sessions)
	}
}
