package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Swaraag/JustIdol-sub000/internal/config"
	"github.com/Swaraag/JustIdol-sub000/internal/metrics"
	"github.com/Swaraag/JustIdol-sub000/internal/pose"
	"github.com/Swaraag/JustIdol-sub000/internal/scoring"
)

// Prometheus collectors register globally, so one instance serves every test
// in this binary.
var testMetrics = metrics.NewMetrics()

func newTestServer(t *testing.T) (*HTTPServer, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	logger := slog.Default()

	mgr := scoring.NewManager(cfg, logger, testMetrics, nil)
	t.Cleanup(mgr.Stop)

	h := NewHTTPServer(cfg.HTTP, logger, cfg, mgr, testMetrics)

	router := mux.NewRouter()
	h.setupRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return h, srv
}

func referenceTrackJSON() []pose.TrackEntry {
	var angles pose.AngleSet
	for i := range angles {
		angles[i] = 90
	}
	return []pose.TrackEntry{
		{TimestampMs: 0, Angles: angles},
		{TimestampMs: 1000, Angles: angles},
	}
}

func createSession(t *testing.T, srv *httptest.Server, mode string, track []pose.TrackEntry) scoring.Snapshot {
	t.Helper()

	body, err := json.Marshal(createSessionRequest{Mode: mode, ReferenceTrack: track})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(srv.URL+"/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /sessions: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var snapshot scoring.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snapshot
}

func TestCreateSessionReturnsSnapshot(t *testing.T) {
	_, srv := newTestServer(t)

	snapshot := createSession(t, srv, "duet", referenceTrackJSON())
	if snapshot.SessionID == "" {
		t.Error("snapshot has empty session ID")
	}
	if snapshot.Mode != scoring.ModeDuet {
		t.Errorf("mode = %q, want duet", snapshot.Mode)
	}
	if snapshot.Finalized {
		t.Error("new session already finalized")
	}
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	_, srv := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"unknown mode", `{"mode":"karaoke"}`},
		{"malformed JSON", `{"mode":`},
		{"bad track timestamp", `{"mode":"dance","reference_track":[{"timestamp_ms":-5,"angles":[0,0,0,0,0,0,0,0,0,0,0,0,0,0]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/sessions", "application/json", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("POST /sessions: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestGetSessionNotFound(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/no-such-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestResultsUnavailableUntilFinalized(t *testing.T) {
	_, srv := newTestServer(t)

	snapshot := createSession(t, srv, "vocal", nil)
	resultsURL := fmt.Sprintf("%s/sessions/%s/results", srv.URL, snapshot.SessionID)

	resp, err := http.Get(resultsURL)
	if err != nil {
		t.Fatalf("GET results: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("results before finalize: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	finalizeURL := fmt.Sprintf("%s/sessions/%s/finalize", srv.URL, snapshot.SessionID)
	resp, err = http.Post(finalizeURL, "application/json", nil)
	if err != nil {
		t.Fatalf("POST finalize: %v", err)
	}
	var result scoring.FinalResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if result.SessionID != snapshot.SessionID {
		t.Errorf("result session ID = %q, want %q", result.SessionID, snapshot.SessionID)
	}

	resp, err = http.Get(resultsURL)
	if err != nil {
		t.Fatalf("GET results after finalize: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("results after finalize: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDeleteSession(t *testing.T) {
	_, srv := newTestServer(t)

	snapshot := createSession(t, srv, "dance", referenceTrackJSON())
	sessionURL := fmt.Sprintf("%s/sessions/%s", srv.URL, snapshot.SessionID)

	req, err := http.NewRequest(http.MethodDelete, sessionURL, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, err = http.Get(sessionURL)
	if err != nil {
		t.Fatalf("GET after delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestListSessions(t *testing.T) {
	_, srv := newTestServer(t)

	createSession(t, srv, "vocal", nil)
	createSession(t, srv, "vocal", nil)

	resp, err := http.Get(srv.URL + "/sessions")
	if err != nil {
		t.Fatalf("GET /sessions: %v", err)
	}
	defer resp.Body.Close()

	var listing struct {
		TotalSessions int                `json:"total_sessions"`
		Sessions      []scoring.Snapshot `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.TotalSessions != 2 || len(listing.Sessions) != 2 {
		t.Errorf("listing = %d sessions (%d snapshots), want 2", listing.TotalSessions, len(listing.Sessions))
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
}

func TestConfigEndpointOmitsSecrets(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatalf("GET /config: %v", err)
	}
	defer resp.Body.Close()

	var cfg map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if _, ok := cfg["publish"]; ok {
		t.Error("config endpoint exposes broker settings")
	}
	if _, ok := cfg["pitch"]; !ok {
		t.Error("config endpoint missing pitch section")
	}
}
