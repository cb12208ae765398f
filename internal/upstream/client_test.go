package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientCreateSessionAndChat(t *testing.T) {
	var chatPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/create":
			json.NewEncoder(w).Encode(map[string]any{
				"session_id": "remote-1",
				"created_at": time.Now().UTC(),
			})
		case "/api/chat":
			json.NewDecoder(r.Body).Decode(&chatPayload)
			json.NewEncoder(w).Encode(map[string]any{
				"response":     "How does that make you feel?",
				"session_id":   "remote-1",
				"timestamp":    time.Now().UTC(),
				"sources_used": []string{"doc-7"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	info, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if info.SessionID != "remote-1" {
		t.Fatalf("unexpected session id: %s", info.SessionID)
	}

	result, err := client.Chat(ctx, info.SessionID, "hello", true, 3)
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if result.Response == "" || len(result.SourcesUsed) != 1 {
		t.Fatalf("unexpected chat result: %+v", result)
	}
	if chatPayload["session_id"] != "remote-1" || chatPayload["use_rag"] != true {
		t.Fatalf("session handle or rag flag not threaded through: %v", chatPayload)
	}
	if chatPayload["n_examples"] != float64(3) {
		t.Fatalf("n_examples not threaded through: %v", chatPayload["n_examples"])
	}
}

func TestClientSurfacesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Chat(context.Background(), "missing", "hi", false, 0)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if !client.Health(context.Background()) {
		t.Fatal("expected healthy backend")
	}

	down := NewClient("http://127.0.0.1:1", time.Second)
	if down.Health(context.Background()) {
		t.Fatal("expected unreachable backend to report unhealthy")
	}
}

func TestClientDeleteSession(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if err := client.DeleteSession(context.Background(), "remote-9"); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}
	if method != http.MethodDelete || path != "/api/sessions/remote-9" {
		t.Fatalf("unexpected request: %s %s", method, path)
	}
}
