// Package config loads and validates the fretsense TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Coordinate formats accepted from the pose detector.
const (
	CoordinateNormalized = "normalized"
	CoordinatePixel      = "pixel"
)

// Paths contains directory, database, and bind address configuration.
type Paths struct {
	DatabasePath string `toml:"database_path"`
	ArtifactDir  string `toml:"artifact_dir"`
	APIBind      string `toml:"api_bind"`
}

// PoseDetection contains parameters passed to the pose detector.
type PoseDetection struct {
	ModelComplexity        int     `toml:"model_complexity"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence"`
	CoordinateFormat       string  `toml:"coordinate_format"`
}

// Range is a [low, high] good range for one aspect's metric.
type Range struct {
	Low  float64 `toml:"low"`
	High float64 `toml:"high"`
}

// Aspects contains the per-aspect biomechanical tuning.
type Aspects struct {
	MinLandmarkConfidence float64 `toml:"min_landmark_confidence"`
	ShoulderRange         Range   `toml:"shoulder_range"`
	WristRange            Range   `toml:"wrist_range"`
	WristNeutralAngle     float64 `toml:"wrist_neutral_angle"`
	HandStabilityRange    Range   `toml:"hand_stability_range"`
	FingerCurlRange       Range   `toml:"finger_curl_range"`
}

// Weights contains the composite-score weights per aspect. They need not
// sum to 1; only their ratios matter.
type Weights struct {
	Shoulder float64 `toml:"shoulder"`
	Wrist    float64 `toml:"wrist"`
	Hand     float64 `toml:"hand"`
	Finger   float64 `toml:"finger"`
}

// Analysis contains pipeline-level tuning.
type Analysis struct {
	MinSampleCount         int     `toml:"min_sample_count"`
	MovementWindowFrames   int     `toml:"movement_window_frames"`
	MovementMinValidFrames int     `toml:"movement_min_valid_frames"`
	InterpolateMaxGap      int     `toml:"interpolate_max_gap"`
	AnalysisTimeoutSeconds int     `toml:"analysis_timeout_seconds"`
	PraiseEnabled          bool    `toml:"praise_enabled"`
	Weights                Weights `toml:"weights"`
}

// Training contains the retraining loop tuning.
type Training struct {
	RetrainingTriggerCount int     `toml:"retraining_trigger_count"`
	ValidationSplit        float64 `toml:"validation_split"`
	RandomState            int64   `toml:"random_state"`
	PromotionTolerance     float64 `toml:"promotion_tolerance"`
	LearningRate           float64 `toml:"learning_rate"`
	Epochs                 int     `toml:"epochs"`
}

// Config is the root configuration object. Components receive the slices
// of it they need at construction; nothing reads a global.
type Config struct {
	Paths         Paths         `toml:"paths"`
	PoseDetection PoseDetection `toml:"pose_detection"`
	Aspects       Aspects       `toml:"aspects"`
	Analysis      Analysis      `toml:"analysis"`
	Training      Training      `toml:"training"`
}

// Default returns the built-in configuration. Paths are rooted under
// ~/.fretsense.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".fretsense")

	return &Config{
		Paths: Paths{
			DatabasePath: filepath.Join(base, "fretsense.db"),
			ArtifactDir:  filepath.Join(base, "models"),
			APIBind:      ":8080",
		},
		PoseDetection: PoseDetection{
			ModelComplexity:        1,
			MinDetectionConfidence: 0.6,
			MinTrackingConfidence:  0.5,
			CoordinateFormat:       CoordinateNormalized,
		},
		Aspects: Aspects{
			MinLandmarkConfidence: 0.5,
			ShoulderRange:         Range{Low: -5, High: 5},
			WristRange:            Range{Low: 10, High: 20},
			WristNeutralAngle:     15,
			HandStabilityRange:    Range{Low: 0.6, High: 1.0},
			FingerCurlRange:       Range{Low: 140, High: 170},
		},
		Analysis: Analysis{
			MinSampleCount:         5,
			MovementWindowFrames:   5,
			MovementMinValidFrames: 3,
			InterpolateMaxGap:      3,
			AnalysisTimeoutSeconds: 60,
			PraiseEnabled:          true,
			Weights:                Weights{Shoulder: 1, Wrist: 1, Hand: 1, Finger: 1},
		},
		Training: Training{
			RetrainingTriggerCount: 50,
			ValidationSplit:        0.15,
			RandomState:            42,
			PromotionTolerance:     0.02,
			LearningRate:           0.1,
			Epochs:                 400,
		},
	}
}

// Load reads a TOML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configured values against their allowed ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.PoseDetection.CoordinateFormat != CoordinateNormalized && c.PoseDetection.CoordinateFormat != CoordinatePixel {
		errs = append(errs, fmt.Errorf("pose_detection.coordinate_format must be %q or %q", CoordinateNormalized, CoordinatePixel))
	}
	if c.PoseDetection.ModelComplexity < 0 || c.PoseDetection.ModelComplexity > 2 {
		errs = append(errs, errors.New("pose_detection.model_complexity must be 0, 1 or 2"))
	}
	if c.Aspects.MinLandmarkConfidence < 0 || c.Aspects.MinLandmarkConfidence > 1 {
		errs = append(errs, errors.New("aspects.min_landmark_confidence must be within [0,1]"))
	}
	for name, r := range map[string]Range{
		"aspects.shoulder_range":       c.Aspects.ShoulderRange,
		"aspects.wrist_range":          c.Aspects.WristRange,
		"aspects.hand_stability_range": c.Aspects.HandStabilityRange,
		"aspects.finger_curl_range":    c.Aspects.FingerCurlRange,
	} {
		if r.Low >= r.High {
			errs = append(errs, fmt.Errorf("%s: low must be below high", name))
		}
	}
	if c.Aspects.WristNeutralAngle < c.Aspects.WristRange.Low || c.Aspects.WristNeutralAngle > c.Aspects.WristRange.High {
		errs = append(errs, errors.New("aspects.wrist_neutral_angle must lie within aspects.wrist_range"))
	}
	if c.Analysis.AnalysisTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("analysis.analysis_timeout_seconds must be positive"))
	}
	if c.Training.ValidationSplit <= 0 || c.Training.ValidationSplit >= 1 {
		errs = append(errs, errors.New("training.validation_split must be within (0,1)"))
	}
	if c.Training.RetrainingTriggerCount <= 0 {
		errs = append(errs, errors.New("training.retraining_trigger_count must be positive"))
	}
	if c.Training.PromotionTolerance < 0 {
		errs = append(errs, errors.New("training.promotion_tolerance must not be negative"))
	}

	return errors.Join(errs...)
}

// WriteSample writes the annotated sample configuration to path. It refuses
// to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sampleConfig), 0644)
}
