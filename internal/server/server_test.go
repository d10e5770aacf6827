package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/fretsense/internal/app"
	"github.com/ayusman/fretsense/internal/config"
	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/pose"
	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/store"
)

// newTestServer builds a Server over a throwaway store and app.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(tmpDir, "test.db")
	cfg.Paths.ArtifactDir = filepath.Join(tmpDir, "models")

	st, err := store.New(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	a, err := app.New(cfg, st)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})

	return New(Config{
		Store:    st,
		App:      a,
		Registry: a.Registry(),
	})
}

// analyzeFrames builds a frame series with level shoulders, enough for the
// shoulder aspect to score.
func analyzeFrames(n int) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		frames[i] = pose.Frame{
			Index:     i,
			Timestamp: float64(i) / 30.0,
			Detected:  true,
			Landmarks: map[string]pose.Landmark{
				pose.LeftShoulder:  {X: 0.40, Y: 0.35, Confidence: 0.9},
				pose.RightShoulder: {X: 0.60, Y: 0.35, Confidence: 0.9},
			},
		}
	}
	return frames
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
	if resp["trainer_state"] != "idle" {
		t.Errorf("trainer_state = %v, want idle", resp["trainer_state"])
	}
	if resp["scoring_mode"] != "rule_based" {
		t.Errorf("scoring_mode = %v, want rule_based with no trained model", resp["scoring_mode"])
	}
}

func TestHealthMissingArtifactReportsRuleBased(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	// An active version whose artifact file is gone still loads into the
	// registry, but the pipeline scores rule-based.
	v := &store.ModelVersion{
		ExampleCount:    8,
		ValidationScore: 0.9,
		ArtifactRef:     filepath.Join(tmpDir, "gone.json"),
		Status:          store.VersionStatusPromoted,
	}
	if err := st.Versions().Create(v); err != nil {
		t.Fatalf("create version: %v", err)
	}
	if err := st.Versions().Activate(v.VersionID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	reg, err := registry.New(st)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	srv := New(Config{Store: st, Registry: reg})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["scoring_mode"] != "rule_based" {
		t.Errorf("scoring_mode = %v, want rule_based when the artifact is unreadable", resp["scoring_mode"])
	}
	if resp["active_model_id"] == nil {
		t.Error("active_model_id missing; the version row is still active")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/analyze", map[string]interface{}{
		"frames": analyzeFrames(10),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID       string                            `json:"session_id"`
		AspectScores    map[string]map[string]interface{} `json:"aspect_scores"`
		CompositeScore  *float64                          `json:"composite_score"`
		ScoringMode     string                            `json:"scoring_mode"`
		Recommendations []string                          `json:"recommendations"`
		Features        []float64                         `json:"features"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if len(resp.AspectScores) != len(metrics.Aspects()) {
		t.Errorf("aspect count = %d, want %d", len(resp.AspectScores), len(metrics.Aspects()))
	}
	if resp.ScoringMode != "rule_based" {
		t.Errorf("scoring_mode = %q, want rule_based", resp.ScoringMode)
	}
	// Shoulders score; the composite exists even though other aspects
	// report insufficient data.
	if resp.CompositeScore == nil {
		t.Error("expected a composite score from the shoulder aspect")
	}
	if shoulder, ok := resp.AspectScores["shoulder_alignment"]; !ok {
		t.Error("missing shoulder_alignment aspect")
	} else if shoulder["status"] != "ok" {
		t.Errorf("shoulder status = %v, want ok", shoulder["status"])
	}
	if len(resp.Features) != 3*len(metrics.Aspects()) {
		t.Errorf("feature length = %d, want %d", len(resp.Features), 3*len(metrics.Aspects()))
	}
}

func TestAnalyzeEndpointNullCompositeWhenNoData(t *testing.T) {
	srv := newTestServer(t)

	// Frames without detections: every aspect is insufficient.
	frames := make([]pose.Frame, 10)
	for i := range frames {
		frames[i] = pose.Frame{Index: i, Timestamp: float64(i) / 30.0}
	}

	w := postJSON(t, srv, "/api/analyze", map[string]interface{}{"frames": frames})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		CompositeScore *float64 `json:"composite_score"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CompositeScore != nil {
		t.Errorf("composite = %v, want null when no aspect could be scored", *resp.CompositeScore)
	}
}

func TestAnalyzeEndpointRejectsBadOrdering(t *testing.T) {
	srv := newTestServer(t)

	frames := analyzeFrames(3)
	frames[2].Index = 1 // duplicate index

	w := postJSON(t, srv, "/api/analyze", map[string]interface{}{"frames": frames})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for out-of-order frames", w.Code)
	}
}

func TestAnalyzeEndpointRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/analyze", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for no frames", w.Code)
	}
}

func TestLabelsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	features := make([]float64, 3*len(metrics.Aspects()))

	body := map[string]interface{}{
		"labels":         map[string]string{"wrist_angle": "good"},
		"feature_vector": features,
	}

	w := postJSON(t, srv, "/api/sessions/session-1/labels", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Accepted  int    `json:"accepted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "session-1" || resp.Accepted != 1 {
		t.Errorf("response = %+v, want session-1 with 1 accepted label", resp)
	}

	// Resubmitting without overwrite conflicts.
	w = postJSON(t, srv, "/api/sessions/session-1/labels", body)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for a duplicate label", w.Code)
	}

	// Unknown aspects are a client error.
	w = postJSON(t, srv, "/api/sessions/session-1/labels", map[string]interface{}{
		"labels":         map[string]string{"elbow_flare": "good"},
		"feature_vector": features,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an unknown aspect", w.Code)
	}
}

func TestModelsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Empty history lists cleanly.
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var list struct {
		Versions []json.RawMessage `json:"versions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Versions) != 0 {
		t.Errorf("versions = %d, want 0 on a fresh store", len(list.Versions))
	}

	// No active model yet.
	req = httptest.NewRequest(http.MethodGet, "/api/models/active", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("active status = %d, want 404", w.Code)
	}

	// Promoting an unknown version is a 404.
	req = httptest.NewRequest(http.MethodPost, "/api/models/99/promote", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("promote status = %d, want 404", w.Code)
	}

	// A non-numeric id is a client error.
	req = httptest.NewRequest(http.MethodPost, "/api/models/latest/promote", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}
