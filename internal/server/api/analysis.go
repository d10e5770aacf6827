package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/fretsense/internal/analysis"
	"github.com/ayusman/fretsense/internal/app"
	"github.com/ayusman/fretsense/internal/pose"
)

// AnalysisHandler handles HTTP requests for clip analysis.
type AnalysisHandler struct {
	app *app.App
}

// NewAnalysisHandler creates a new AnalysisHandler backed by the app.
func NewAnalysisHandler(a *app.App) *AnalysisHandler {
	return &AnalysisHandler{app: a}
}

// Request types

type analyzeRequest struct {
	Frames []pose.Frame `json:"frames"`
}

// Response types

type aspectScoreResponse struct {
	Score          float64 `json:"score"`
	MeanMetric     float64 `json:"mean_metric"`
	VarianceMetric float64 `json:"variance_metric"`
	SampleCount    int     `json:"sample_count"`
	Status         string  `json:"status"`
}

type analyzeResponse struct {
	SessionID       string                         `json:"session_id"`
	AspectScores    map[string]aspectScoreResponse `json:"aspect_scores"`
	CompositeScore  *float64                       `json:"composite_score"` // null means NO_SCORE
	ScoringMode     string                         `json:"scoring_mode"`
	Recommendations []string                       `json:"recommendations"`
	Features        []float64                      `json:"features"`
}

// ServeHTTP implements the http.Handler interface.
// Expected path: POST /api/analyze
func (h *AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "No frames provided")
		return
	}

	seq := pose.NewSequence()
	for _, frame := range req.Frames {
		if err := seq.Append(frame); err != nil {
			if errors.Is(err, pose.ErrSequenceOrder) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to build sequence")
			return
		}
	}

	sessionID, result := h.app.AnalyzeSequence(r.Context(), seq)
	writeJSON(w, http.StatusOK, toAnalyzeResponse(sessionID, result))
}

func toAnalyzeResponse(sessionID string, result *analysis.Result) analyzeResponse {
	resp := analyzeResponse{
		SessionID:       sessionID,
		AspectScores:    make(map[string]aspectScoreResponse, len(result.Aspects)),
		ScoringMode:     string(result.Mode),
		Recommendations: result.Recommendations,
		Features:        result.Features,
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}

	for _, s := range result.Aspects {
		resp.AspectScores[string(s.Aspect)] = aspectScoreResponse{
			Score:          s.Score,
			MeanMetric:     s.Mean,
			VarianceMetric: s.Variance,
			SampleCount:    s.SampleCount,
			Status:         string(s.Status),
		}
	}

	if result.HasComposite {
		composite := result.Composite
		resp.CompositeScore = &composite
	}

	return resp
}
