package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bigbes/tg-identity-store/internal/store"
)

const testToken = "test-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	srv := New(st, testToken, "127.0.0.1:0", logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/chats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatalf("request error: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHealthUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPeerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	hash := int64(-7331)
	resp := doRequest(t, ts, http.MethodPost, "/api/peers", upsertPeerRequest{
		Username: "alice", PeerType: 1, PeerID: 100, AccessHash: &hash,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/peers status = %d, want 200", resp.StatusCode)
	}
	var created peerResponse
	decodeInto(t, resp, &created)
	if created.ID == 0 {
		t.Fatalf("POST /api/peers assigned id 0")
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/peers/alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/peers/alice status = %d, want 200", resp.StatusCode)
	}
	var got peerResponse
	decodeInto(t, resp, &got)
	if got.ID != created.ID || got.AccessHash == nil || *got.AccessHash != hash {
		t.Errorf("GET /api/peers/alice = %+v, want id %d, access_hash %d", got, created.ID, hash)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/peers/alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE /api/peers/alice status = %d, want 200", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/peers/alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/peers/alice after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestPeerByIDQuery(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/peers", upsertPeerRequest{
		Username: "alice", PeerType: 1, PeerID: 100,
	})
	var created peerResponse
	decodeInto(t, resp, &created)

	resp = doRequest(t, ts, http.MethodGet, fmt.Sprintf("/api/peers?id=%d", created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/peers?id status = %d, want 200", resp.StatusCode)
	}
	var got peerResponse
	decodeInto(t, resp, &got)
	if got.Username != "alice" {
		t.Errorf("GET /api/peers?id username = %q, want %q", got.Username, "alice")
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/peers?id=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET /api/peers?id=bogus status = %d, want 400", resp.StatusCode)
	}
}

func TestPeerAccessHashOmittedWhenAbsent(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/peers", upsertPeerRequest{
		Username: "alice", PeerType: 1, PeerID: 100,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/peers status = %d, want 200", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/peers/alice", nil)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if bytes.Contains(raw, []byte("access_hash")) {
		t.Errorf("response contains access_hash for a peer without one: %s", raw)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	blob := []byte{0x01, 0x02, 0xFF, 0x00, 0x7F}
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", upsertSessionRequest{
		PhoneNumber: "+15551234", Session: blob,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/sessions status = %d, want 200", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/+15551234", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/sessions status = %d, want 200", resp.StatusCode)
	}
	var got sessionResponse
	decodeInto(t, resp, &got)
	if !bytes.Equal(got.Session, blob) {
		t.Errorf("session blob = %v, want %v", got.Session, blob)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/sessions/+15551234", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE /api/sessions status = %d, want 200", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodDelete, "/api/sessions/+15551234", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("DELETE /api/sessions repeat status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body upsertSessionRequest
	}{
		{"missing phone", upsertSessionRequest{Session: []byte("blob")}},
		{"missing blob", upsertSessionRequest{PhoneNumber: "+15551234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/sessions", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestChatLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/chats", upsertChatRequest{ChatID: 42})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/chats status = %d, want 200", resp.StatusCode)
	}
	var first chatResponse
	decodeInto(t, resp, &first)

	// Tracking the same chat again returns the same row.
	resp = doRequest(t, ts, http.MethodPost, "/api/chats", upsertChatRequest{ChatID: 42})
	var second chatResponse
	decodeInto(t, resp, &second)
	if second.ID != first.ID {
		t.Errorf("repeat POST /api/chats id = %d, want %d", second.ID, first.ID)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/chats", nil)
	var chats []chatResponse
	decodeInto(t, resp, &chats)
	if len(chats) != 1 {
		t.Errorf("GET /api/chats returned %d rows, want 1", len(chats))
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/chats/42", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE /api/chats/42 status = %d, want 200", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodGet, "/api/chats/42", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/chats/42 after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestChatInvalidID(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/chats/not-a-number", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
