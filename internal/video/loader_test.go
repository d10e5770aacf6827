package video

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFormat(t *testing.T) {
	for _, path := range []string{"clip.mp4", "takes/solo.AVI", "riff.mov"} {
		if err := ValidateFormat(path); err != nil {
			t.Errorf("ValidateFormat(%q) = %v, want accepted", path, err)
		}
	}

	for _, path := range []string{"clip.mkv", "notes.txt", "clip", "clip.mp4.webm"} {
		err := ValidateFormat(path)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ValidateFormat(%q) = %v, want ErrUnsupportedFormat", path, err)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.mp4")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestOpenRejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(path, []byte("not a video"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}
