// Package app wires the fretsense components together: store, registry,
// trainer, detector, video loading, and the analysis pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fretsense/internal/analysis"
	"github.com/ayusman/fretsense/internal/config"
	"github.com/ayusman/fretsense/internal/detector"
	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/pose"
	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/store"
	"github.com/ayusman/fretsense/internal/train"
	"github.com/ayusman/fretsense/internal/video"
)

// Event is a notification pushed to subscribers (the websocket stream).
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Event types.
const (
	EventAnalysis = "analysis"
	EventTraining = "training"
)

// ErrUnknownAspect is returned for label submissions naming an aspect the
// system does not track.
var ErrUnknownAspect = errors.New("unknown aspect")

// ErrUnknownLabel is returned for label values outside the accepted set.
var ErrUnknownLabel = errors.New("unknown label")

// App is the application core shared by the CLI and the HTTP server.
type App struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	trigger  *train.Trigger
	trainer  *train.Trainer
	pipeline *analysis.Pipeline
	detector detector.Detector

	mu      sync.RWMutex
	onEvent func(Event)

	trainWG sync.WaitGroup
}

// New creates the App over an opened store. The MediaPipe detector is
// preferred; hosts without it fall back to the mock detector.
func New(cfg *config.Config, st *store.Store) (*App, error) {
	if err := os.MkdirAll(cfg.Paths.ArtifactDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	reg, err := registry.New(st)
	if err != nil {
		return nil, err
	}

	trigger := train.NewTrigger(st, cfg.Training.RetrainingTriggerCount)
	trainer := train.NewTrainer(st, reg, trigger, cfg.Training, cfg.Paths.ArtifactDir)

	a := &App{
		cfg:      cfg,
		store:    st,
		registry: reg,
		trigger:  trigger,
		trainer:  trainer,
		pipeline: analysis.New(cfg, reg),
	}
	trainer.OnReport = func(r train.Report) {
		a.emit(Event{Type: EventTraining, Timestamp: time.Now(), Payload: r})
	}

	if mp, err := detector.NewMediaPipeDetector(detectorConfig(cfg)); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// detectorConfig maps the pose-detection settings onto the detector
// defaults. Unset confidence thresholds keep the default values; model
// complexity is always taken as configured since 0 selects the lite model.
func detectorConfig(cfg *config.Config) detector.Config {
	dc := detector.DefaultConfig()
	dc.ModelComplexity = cfg.PoseDetection.ModelComplexity
	if cfg.PoseDetection.MinDetectionConfidence > 0 {
		dc.MinDetectionConfidence = cfg.PoseDetection.MinDetectionConfidence
	}
	if cfg.PoseDetection.MinTrackingConfidence > 0 {
		dc.MinTrackingConfidence = cfg.PoseDetection.MinTrackingConfidence
	}
	return dc
}

// SetEventHandler registers the subscriber callback. One subscriber (the
// websocket hub) is enough; it fans out.
func (a *App) SetEventHandler(fn func(Event)) {
	a.mu.Lock()
	a.onEvent = fn
	a.mu.Unlock()
}

func (a *App) emit(e Event) {
	a.mu.RLock()
	fn := a.onEvent
	a.mu.RUnlock()
	if fn != nil {
		fn(e)
	}
}

// Registry returns the model version registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// TrainerState returns the current trainer state for health reporting.
func (a *App) TrainerState() train.State {
	return a.trainer.State()
}

// AnalyzeClip loads a video file, runs pose detection frame by frame, and
// scores the resulting sequence. Returns the generated session id with the
// result. Detection failures on individual frames become gap frames, not
// errors.
func (a *App) AnalyzeClip(ctx context.Context, path string) (string, *analysis.Result, error) {
	clip, err := video.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer clip.Close()

	info := clip.Info()
	seq := pose.NewSequence()

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		mat, err := clip.ReadFrame()
		if err != nil {
			return "", nil, err
		}
		if mat == nil {
			break
		}

		frame, err := a.detector.Detect(mat)
		mat.Close()
		if err != nil {
			log.Printf("Pose detection failed on frame %d: %v", index, err)
			frame = &pose.Frame{}
		}

		frame.Index = index
		frame.Timestamp = float64(index) / info.FPS
		if a.cfg.PoseDetection.CoordinateFormat == config.CoordinatePixel {
			normalizeFrame(frame, info.Width, info.Height)
		}

		if err := seq.Append(*frame); err != nil {
			return "", nil, err
		}
	}

	sessionID := uuid.NewString()
	result := a.pipeline.Analyze(ctx, seq)
	a.emitAnalysis(sessionID, result)
	return sessionID, result, nil
}

// AnalyzeSequence scores a pre-built landmark sequence, as posted by the
// upload interface. The session id is generated here so labels can refer
// back to it.
func (a *App) AnalyzeSequence(ctx context.Context, seq *pose.Sequence) (string, *analysis.Result) {
	sessionID := uuid.NewString()
	result := a.pipeline.Analyze(ctx, seq)
	a.emitAnalysis(sessionID, result)
	return sessionID, result
}

func (a *App) emitAnalysis(sessionID string, result *analysis.Result) {
	a.emit(Event{
		Type:      EventAnalysis,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"session_id":   sessionID,
			"scoring_mode": result.Mode,
			"has_score":    result.HasComposite,
		},
	})
}

// SubmitLabels stores the user's per-aspect labels for a session and kicks
// off background retraining when enough new examples accumulated. The
// feature vector comes with the submission so the stored example matches
// what was scored.
func (a *App) SubmitLabels(sessionID string, labels map[string]string, features []float64, sourceVideo string, overwrite bool) error {
	if len(labels) == 0 {
		return errors.New("no labels submitted")
	}
	for aspect, label := range labels {
		if !validAspect(aspect) {
			return fmt.Errorf("%w: %s", ErrUnknownAspect, aspect)
		}
		if label != store.LabelGood && label != store.LabelNeedsImprovement {
			return fmt.Errorf("%w: %s", ErrUnknownLabel, label)
		}
	}

	examples := a.store.Examples()
	for aspect, label := range labels {
		e := &store.TrainingExample{
			SessionID:   sessionID,
			Aspect:      aspect,
			Label:       label,
			Features:    features,
			SourceVideo: sourceVideo,
		}
		if err := examples.Create(e, overwrite); err != nil {
			return err
		}
	}

	a.maybeRetrain()
	return nil
}

// maybeRetrain starts a background training run if the trigger fires and
// no run is already active. Scoring requests are not blocked: the trainer
// only touches the registry at promotion time.
func (a *App) maybeRetrain() {
	should, err := a.trigger.ShouldRetrain()
	if err != nil {
		log.Printf("Retraining trigger check failed: %v", err)
		return
	}
	if !should {
		return
	}

	a.trainWG.Add(1)
	go func() {
		defer a.trainWG.Done()
		if _, err := a.trainer.Run(context.Background()); err != nil {
			if errors.Is(err, train.ErrTrainingInProgress) {
				return
			}
			log.Printf("Background training run failed: %v", err)
		}
	}()
}

// Train runs a training cycle synchronously (CLI entry point).
func (a *App) Train(ctx context.Context) (*train.Report, error) {
	return a.trainer.Run(ctx)
}

// Close waits for background training and releases the detector. The
// store is owned by the caller.
func (a *App) Close() error {
	a.trainWG.Wait()
	if a.detector != nil {
		return a.detector.Close()
	}
	return nil
}

func validAspect(name string) bool {
	for _, aspect := range metrics.Aspects() {
		if string(aspect) == name {
			return true
		}
	}
	return false
}

// normalizeFrame converts pixel-space landmarks to [0,1] image space.
func normalizeFrame(f *pose.Frame, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	for name, lm := range f.Landmarks {
		lm.X /= float64(width)
		lm.Y /= float64(height)
		lm.Z /= float64(width)
		f.Landmarks[name] = lm
	}
}
