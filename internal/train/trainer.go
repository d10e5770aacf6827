// Package train implements the retraining loop: the trainer state machine
// that refits the technique scorer from labeled sessions, and the trigger
// that decides when enough new labels have accumulated.
package train

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fretsense/internal/config"
	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/model"
	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/store"
)

// State of the trainer state machine.
type State string

const (
	// StateIdle means no training run is in progress.
	StateIdle State = "idle"
	// StateTraining means a model fit is running.
	StateTraining State = "training"
	// StateValidating means the fitted model is being evaluated.
	StateValidating State = "validating"
)

// Outcome of a completed training run.
type Outcome string

const (
	// OutcomePromoted means the new version became active.
	OutcomePromoted Outcome = "promoted"
	// OutcomeRejected means the version was recorded but not activated.
	OutcomeRejected Outcome = "rejected"
)

// ErrTrainingInProgress is returned when a run is requested while another
// run holds the trainer.
var ErrTrainingInProgress = errors.New("training already in progress")

// Report summarizes one completed training run.
type Report struct {
	Outcome         Outcome `json:"outcome"`
	VersionID       int64   `json:"version_id"`
	ValidationScore float64 `json:"validation_score"`
	ExampleCount    int     `json:"example_count"`
	Reason          string  `json:"reason,omitempty"`
}

// Trainer refits the learned scorer from the training example store and
// records the result in the version registry. Long fits run without
// blocking scoring: the registry swap happens only at promotion.
type Trainer struct {
	examples    *store.ExampleRepository
	registry    *registry.Registry
	trigger     *Trigger
	cfg         config.Training
	artifactDir string

	// OnReport, if set, is called with the report of every completed run.
	OnReport func(Report)

	mu    sync.Mutex
	state State
}

// NewTrainer creates a Trainer. Artifacts are written under artifactDir.
func NewTrainer(st *store.Store, reg *registry.Registry, trigger *Trigger, cfg config.Training, artifactDir string) *Trainer {
	return &Trainer{
		examples:    st.Examples(),
		registry:    reg,
		trigger:     trigger,
		cfg:         cfg,
		artifactDir: artifactDir,
		state:       StateIdle,
	}
}

// State returns the current trainer state.
func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Trainer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Run executes one training cycle: load examples, fit with a held-out
// validation split, gate promotion on the active version's score, and
// record the version either way. Training-data problems reject the run and
// never crash; only infrastructure failures (store, filesystem) and
// cancellation return an error. The trigger counter resets on every
// outcome, including errors, so the same batch is not retried in a loop.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return nil, ErrTrainingInProgress
	}
	t.state = StateTraining
	t.mu.Unlock()

	defer t.setState(StateIdle)
	defer func() {
		if err := t.trigger.Reset(); err != nil {
			log.Printf("Failed to reset retraining counter: %v", err)
		}
	}()

	rows, err := t.examples.List(time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load training examples: %w", err)
	}
	examples := groupBySession(rows)

	if len(examples) < 2 {
		return t.reject(0, len(examples), fmt.Sprintf("need at least 2 labeled sessions, have %d", len(examples)))
	}

	trainSet, holdout := split(examples, t.cfg.ValidationSplit, t.cfg.RandomState)

	opts := model.Options{
		LearningRate: t.cfg.LearningRate,
		Epochs:       t.cfg.Epochs,
		L2:           1e-3,
		Seed:         t.cfg.RandomState,
	}
	m, err := model.Fit(ctx, trainSet, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Cancelled: no version is recorded, nothing was promoted.
			return nil, err
		}
		// Training-data error: record the rejection for audit.
		return t.reject(0, len(examples), err.Error())
	}

	t.setState(StateValidating)
	score := evaluate(m, holdout)

	artifactRef := filepath.Join(t.artifactDir, fmt.Sprintf("model-%s.json", uuid.NewString()))
	if err := m.Save(artifactRef); err != nil {
		return nil, fmt.Errorf("save model artifact: %w", err)
	}

	active := t.registry.Active()
	promote := active == nil || score >= active.ValidationScore-t.cfg.PromotionTolerance

	version := &store.ModelVersion{
		ExampleCount:    len(examples),
		ValidationScore: score,
		ArtifactRef:     artifactRef,
		Status:          store.VersionStatusPromoted,
	}
	if !promote {
		version.Status = store.VersionStatusRejected
		version.Reason = fmt.Sprintf("validation score %.3f regressed beyond tolerance %.3f from active %.3f",
			score, t.cfg.PromotionTolerance, active.ValidationScore)
	}

	if err := t.registry.Register(version, m, promote); err != nil {
		return nil, err
	}

	report := Report{
		Outcome:         OutcomePromoted,
		VersionID:       version.VersionID,
		ValidationScore: score,
		ExampleCount:    len(examples),
	}
	if !promote {
		report.Outcome = OutcomeRejected
		report.Reason = version.Reason
		log.Printf("Model version %d rejected: %s", version.VersionID, version.Reason)
	} else {
		log.Printf("Model version %d promoted (validation score %.3f, %d examples)",
			version.VersionID, score, len(examples))
	}

	t.report(report)
	return &report, nil
}

// reject records a data-error rejection in the version history so the
// failed run stays auditable, then reports it.
func (t *Trainer) reject(score float64, exampleCount int, reason string) (*Report, error) {
	version := &store.ModelVersion{
		ExampleCount:    exampleCount,
		ValidationScore: score,
		Status:          store.VersionStatusRejected,
		Reason:          reason,
	}
	if err := t.registry.Register(version, nil, false); err != nil {
		return nil, err
	}

	log.Printf("Training run rejected: %s", reason)
	report := Report{
		Outcome:         OutcomeRejected,
		VersionID:       version.VersionID,
		ValidationScore: score,
		ExampleCount:    exampleCount,
		Reason:          reason,
	}
	t.report(report)
	return &report, nil
}

func (t *Trainer) report(r Report) {
	if t.OnReport != nil {
		t.OnReport(r)
	}
}

// groupBySession folds per-aspect label rows into one example per session.
// The feature vector is shared across a session's rows; the first row wins.
func groupBySession(rows []store.TrainingExample) []model.Example {
	index := make(map[string]int)
	var examples []model.Example

	for _, row := range rows {
		i, ok := index[row.SessionID]
		if !ok {
			examples = append(examples, model.Example{
				SessionID: row.SessionID,
				Features:  row.Features,
				Labels:    make(map[metrics.Aspect]model.Label),
			})
			i = len(examples) - 1
			index[row.SessionID] = i
		}
		examples[i].Labels[metrics.Aspect(row.Aspect)] = model.Label(row.Label)
	}

	return examples
}

// split shuffles deterministically and carves off the validation hold-out.
// At least one example stays on each side.
func split(examples []model.Example, validationSplit float64, seed int64) (trainSet, holdout []model.Example) {
	shuffled := make([]model.Example, len(examples))
	copy(shuffled, examples)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := int(float64(len(shuffled))*validationSplit + 0.5)
	if n < 1 {
		n = 1
	}
	if n >= len(shuffled) {
		n = len(shuffled) - 1
	}

	return shuffled[n:], shuffled[:n]
}

// evaluate scores a fitted model on the hold-out set: F1 on the good class
// when both classes appear in the truth, plain accuracy otherwise. Labeled
// aspect pairs the model cannot predict count as errors.
func evaluate(m *model.Model, holdout []model.Example) float64 {
	var tp, fp, fn, correct, total float64
	var sawGood, sawBad bool

	for _, ex := range holdout {
		probs, err := m.Predict(ex.Features)
		for aspect, label := range ex.Labels {
			total++
			if err != nil {
				continue
			}
			p, ok := probs[aspect]
			if !ok {
				continue
			}
			predictedGood := p >= 0.5
			actualGood := label == model.LabelGood
			if actualGood {
				sawGood = true
			} else {
				sawBad = true
			}

			switch {
			case predictedGood && actualGood:
				tp++
				correct++
			case predictedGood && !actualGood:
				fp++
			case !predictedGood && actualGood:
				fn++
			default:
				correct++
			}
		}
	}

	if total == 0 {
		return 0
	}
	if sawGood && sawBad {
		denom := 2*tp + fp + fn
		if denom == 0 {
			return 0
		}
		return 2 * tp / denom
	}
	return correct / total
}
