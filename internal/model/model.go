// Package model implements the learned technique classifier: one logistic
// regression per aspect over session feature vectors, with a JSON artifact
// format for the version registry.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/fretsense/internal/metrics"
)

// Label is a per-aspect human judgment on one session.
type Label string

const (
	// LabelGood marks technique judged acceptable for that aspect.
	LabelGood Label = "good"
	// LabelNeedsImprovement marks technique judged in need of correction.
	LabelNeedsImprovement Label = "needs_improvement"
)

// Training data errors. These reject a training run; they never crash it.
var (
	ErrNoExamples     = errors.New("no training examples")
	ErrFeatureDim     = errors.New("malformed feature vector")
	ErrClassImbalance = errors.New("insufficient class balance")
)

// ErrUntrainedAspect is returned when a prediction is requested for an
// aspect the model was not fitted on.
var ErrUntrainedAspect = errors.New("aspect not covered by model")

// Example is one labeled session: its feature vector plus the per-aspect
// labels the user assigned.
type Example struct {
	SessionID string                   `json:"session_id"`
	Features  []float64                `json:"features"`
	Labels    map[metrics.Aspect]Label `json:"labels"`
}

// Options controls the gradient-descent fit.
type Options struct {
	LearningRate float64
	Epochs       int
	L2           float64
	Seed         int64
}

// DefaultOptions returns fit parameters that converge reliably on the
// standardized feature scale.
func DefaultOptions() Options {
	return Options{
		LearningRate: 0.1,
		Epochs:       400,
		L2:           1e-3,
		Seed:         42,
	}
}

// Model is a fitted per-aspect logistic classifier. Weights index 0 is the
// bias; features are standardized with the stored means/scales before the
// dot product, so the artifact is self-contained.
type Model struct {
	FeatureDim int                          `json:"feature_dim"`
	Means      []float64                    `json:"means"`
	Scales     []float64                    `json:"scales"`
	Weights    map[metrics.Aspect][]float64 `json:"weights"`
}

// Fit trains one logistic regression per aspect on the given examples.
// Every aspect present in the data must have both classes represented, and
// all feature vectors must share one dimension; violations return training
// data errors. The context is checked between epochs so a long fit can be
// cancelled without side effects.
func Fit(ctx context.Context, examples []Example, opts Options) (*Model, error) {
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	dim := len(examples[0].Features)
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty features in example %q", ErrFeatureDim, examples[0].SessionID)
	}
	for _, ex := range examples {
		if len(ex.Features) != dim {
			return nil, fmt.Errorf("%w: example %q has %d features, expected %d",
				ErrFeatureDim, ex.SessionID, len(ex.Features), dim)
		}
	}

	means, scales := standardization(examples, dim)

	m := &Model{
		FeatureDim: dim,
		Means:      means,
		Scales:     scales,
		Weights:    make(map[metrics.Aspect][]float64),
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	for _, aspect := range metrics.Aspects() {
		xs, ys := aspectData(examples, aspect, means, scales)
		if len(xs) == 0 {
			continue
		}
		if !bothClasses(ys) {
			return nil, fmt.Errorf("%w: aspect %s has a single class across %d examples",
				ErrClassImbalance, aspect, len(xs))
		}

		w, err := fitLogistic(ctx, xs, ys, opts, rng)
		if err != nil {
			return nil, err
		}
		m.Weights[aspect] = w
	}

	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("%w: no aspect had any labels", ErrNoExamples)
	}

	return m, nil
}

// Predict returns the good-class probability per trained aspect for one
// session feature vector.
func (m *Model) Predict(features []float64) (map[metrics.Aspect]float64, error) {
	if len(features) != m.FeatureDim {
		return nil, fmt.Errorf("%w: got %d features, model expects %d",
			ErrFeatureDim, len(features), m.FeatureDim)
	}

	x := m.standardize(features)
	out := make(map[metrics.Aspect]float64, len(m.Weights))
	for aspect, w := range m.Weights {
		out[aspect] = sigmoid(decision(w, x))
	}
	return out, nil
}

// PredictAspect returns the good-class probability for a single aspect.
func (m *Model) PredictAspect(aspect metrics.Aspect, features []float64) (float64, error) {
	probs, err := m.Predict(features)
	if err != nil {
		return 0, err
	}
	p, ok := probs[aspect]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUntrainedAspect, aspect)
	}
	return p, nil
}

// Save writes the model artifact as JSON.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}

// Load reads a model artifact written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if m.FeatureDim == 0 || len(m.Weights) == 0 {
		return nil, fmt.Errorf("model artifact %s is incomplete", path)
	}
	return &m, nil
}

func (m *Model) standardize(features []float64) []float64 {
	x := make([]float64, len(features))
	for i, v := range features {
		x[i] = (v - m.Means[i]) / m.Scales[i]
	}
	return x
}

func standardization(examples []Example, dim int) (means, scales []float64) {
	means = make([]float64, dim)
	scales = make([]float64, dim)
	n := float64(len(examples))

	for _, ex := range examples {
		for i, v := range ex.Features {
			means[i] += v
		}
	}
	for i := range means {
		means[i] /= n
	}

	for _, ex := range examples {
		for i, v := range ex.Features {
			d := v - means[i]
			scales[i] += d * d
		}
	}
	for i := range scales {
		scales[i] = math.Sqrt(scales[i] / n)
		if scales[i] < 1e-10 {
			scales[i] = 1 // constant feature, leave it centered
		}
	}
	return means, scales
}

// aspectData extracts the standardized feature rows and binary targets
// (1 = good) for one aspect, skipping examples without a label for it.
func aspectData(examples []Example, aspect metrics.Aspect, means, scales []float64) ([][]float64, []float64) {
	var xs [][]float64
	var ys []float64
	for _, ex := range examples {
		label, ok := ex.Labels[aspect]
		if !ok {
			continue
		}
		x := make([]float64, len(ex.Features))
		for i, v := range ex.Features {
			x[i] = (v - means[i]) / scales[i]
		}
		xs = append(xs, x)
		if label == LabelGood {
			ys = append(ys, 1)
		} else {
			ys = append(ys, 0)
		}
	}
	return xs, ys
}

func bothClasses(ys []float64) bool {
	var pos, neg bool
	for _, y := range ys {
		if y > 0.5 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

// fitLogistic runs full-batch gradient descent on the logistic loss with L2
// regularization. Deterministic for a given seed: the rng only perturbs the
// initial weights.
func fitLogistic(ctx context.Context, xs [][]float64, ys []float64, opts Options, rng *rand.Rand) ([]float64, error) {
	dim := len(xs[0])
	w := mat.NewVecDense(dim+1, nil)
	for i := 0; i < w.Len(); i++ {
		w.SetVec(i, rng.NormFloat64()*0.01)
	}

	grad := mat.NewVecDense(dim+1, nil)
	n := float64(len(xs))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		grad.Zero()
		for i, x := range xs {
			p := sigmoid(decision(w.RawVector().Data, x))
			err := p - ys[i]
			grad.SetVec(0, grad.AtVec(0)+err)
			for j, v := range x {
				grad.SetVec(j+1, grad.AtVec(j+1)+err*v)
			}
		}

		for j := 0; j < w.Len(); j++ {
			g := grad.AtVec(j) / n
			if j > 0 {
				g += opts.L2 * w.AtVec(j)
			}
			w.SetVec(j, w.AtVec(j)-opts.LearningRate*g)
		}
	}

	out := make([]float64, w.Len())
	copy(out, w.RawVector().Data)
	return out, nil
}

// decision computes bias + w·x where w[0] is the bias.
func decision(w, x []float64) float64 {
	z := w[0]
	for i, v := range x {
		z += w[i+1] * v
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
