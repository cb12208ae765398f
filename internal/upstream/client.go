// Package upstream is the HTTP client for the external therapy RAG
// backend. All model-backed behavior in the product lives behind this
// API; the client only does transport and decoding, no retries.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SessionInfo mirrors the backend's session creation response.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// ChatResult is one assistant turn from the backend.
type ChatResult struct {
	Response    string    `json:"response"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	SourcesUsed []string  `json:"sources_used,omitempty"`
}

// HistoryMessage is a single stored turn in the backend transcript.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// RAGStats describes the backend's retrieval corpus.
type RAGStats struct {
	TotalDocuments int        `json:"total_documents"`
	CollectionName string     `json:"collection_name"`
	EmbeddingModel string     `json:"embedding_model"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// CreateSession provisions a remote session and returns its handle.
func (c *Client) CreateSession(ctx context.Context) (SessionInfo, error) {
	var info SessionInfo
	err := c.do(ctx, http.MethodPost, "/api/sessions/create", map[string]any{}, &info)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("failed to create upstream session: %w", err)
	}
	return info, nil
}

// Chat sends one user message on an existing remote session.
func (c *Client) Chat(ctx context.Context, sessionID, message string, useRAG bool, nExamples int) (ChatResult, error) {
	payload := map[string]any{
		"session_id": sessionID,
		"message":    message,
		"use_rag":    useRAG,
		"n_examples": nExamples,
	}

	var result ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", payload, &result); err != nil {
		return ChatResult{}, fmt.Errorf("upstream chat call failed: %w", err)
	}
	return result, nil
}

// History fetches the full remote transcript for a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	var body struct {
		Messages []HistoryMessage `json:"messages"`
	}
	path := fmt.Sprintf("/api/sessions/%s/history", sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, fmt.Errorf("failed to fetch upstream history: %w", err)
	}
	return body.Messages, nil
}

// Summary asks the backend to summarize the conversation.
func (c *Client) Summary(ctx context.Context, sessionID string) (string, error) {
	var body struct {
		Summary string `json:"summary"`
	}
	path := fmt.Sprintf("/api/sessions/%s/summary", sessionID)
	payload := map[string]any{"session_id": sessionID}
	if err := c.do(ctx, http.MethodPost, path, payload, &body); err != nil {
		return "", fmt.Errorf("failed to fetch upstream summary: %w", err)
	}
	return body.Summary, nil
}

// DeleteSession tears down the remote session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/sessions/%s", sessionID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete upstream session: %w", err)
	}
	return nil
}

// Stats fetches retrieval corpus statistics.
func (c *Client) Stats(ctx context.Context) (RAGStats, error) {
	var stats RAGStats
	if err := c.do(ctx, http.MethodGet, "/api/rag/stats", nil, &stats); err != nil {
		return RAGStats{}, fmt.Errorf("failed to fetch rag stats: %w", err)
	}
	return stats, nil
}

// Health reports backend availability.
func (c *Client) Health(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil)
	return err == nil
}

// do executes one JSON request and decodes the response into out when
// out is non-nil. Non-2xx statuses surface as errors carrying the
// status and response detail.
func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
