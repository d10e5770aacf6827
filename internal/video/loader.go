// Package video provides video clip loading and validation using GoCV
// (OpenCV). Clips are validated for analysis suitability before any frame
// is read.
package video

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// SupportedFormats lists the accepted clip file extensions.
var SupportedFormats = []string{".mp4", ".avi", ".mov"}

// ErrClipNotOpen is returned when reading from a clip that is not open.
var ErrClipNotOpen = errors.New("clip is not open")

// ErrUnsupportedFormat is returned for clip files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported video format")

// Info holds the validated properties of a loaded clip.
type Info struct {
	Path       string
	FPS        float64
	FrameCount int
	Width      int
	Height     int
	Duration   float64 // seconds
}

// Clip manages frame reading from a video file.
type Clip struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	info    Info
	open    bool
}

// ValidateFormat checks that the file has a supported video extension.
func ValidateFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedFormats {
		if ext == supported {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Open loads a video file and validates it is suitable for analysis:
// the file must exist, have a supported format, and report a positive
// frame rate and frame count. The capture is released on any failure.
func Open(path string) (*Clip, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}
	if err := ValidateFormat(path); err != nil {
		return nil, err
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	frameCount := int(capture.Get(gocv.VideoCaptureFrameCount))
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))

	if fps <= 0 || frameCount <= 0 {
		capture.Close()
		return nil, fmt.Errorf("video %s has invalid properties (fps=%.2f, frames=%d)", path, fps, frameCount)
	}

	return &Clip{
		capture: capture,
		open:    true,
		info: Info{
			Path:       path,
			FPS:        fps,
			FrameCount: frameCount,
			Width:      width,
			Height:     height,
			Duration:   float64(frameCount) / fps,
		},
	}, nil
}

// Info returns the clip's validated properties.
func (c *Clip) Info() Info {
	return c.info
}

// ReadFrame reads the next frame. The caller owns the returned Mat and
// must Close it. Returns (nil, nil) at end of clip.
func (c *Clip) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrClipNotOpen
	}

	frame := gocv.NewMat()
	if ok := c.capture.Read(&frame); !ok {
		frame.Close()
		return nil, nil
	}
	if frame.Empty() {
		frame.Close()
		return nil, nil
	}

	return &frame, nil
}

// Close releases the underlying capture. Safe to call twice.
func (c *Clip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}
	c.open = false
	return c.capture.Close()
}
