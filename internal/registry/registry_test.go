package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ayusman/fretsense/internal/metrics"
	"github.com/ayusman/fretsense/internal/model"
	"github.com/ayusman/fretsense/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// trainedModel fits a small model and writes its artifact, returning both.
func trainedModel(t *testing.T, dir string, name string) (*model.Model, string) {
	t.Helper()

	dim := 3 * len(metrics.Aspects())
	examples := make([]model.Example, 0, 8)
	for i := 0; i < 8; i++ {
		good := i%2 == 0
		features := make([]float64, dim)
		for j := range features {
			if good {
				features[j] = 1 + 0.1*float64(i)
			} else {
				features[j] = -1 - 0.1*float64(i)
			}
		}
		label := model.LabelGood
		if !good {
			label = model.LabelNeedsImprovement
		}
		labels := make(map[metrics.Aspect]model.Label)
		for _, aspect := range metrics.Aspects() {
			labels[aspect] = label
		}
		examples = append(examples, model.Example{
			SessionID: fmt.Sprintf("s-%s-%d", name, i),
			Features:  features,
			Labels:    labels,
		})
	}

	m, err := model.Fit(context.Background(), examples, model.DefaultOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	ref := filepath.Join(dir, name+".json")
	if err := m.Save(ref); err != nil {
		t.Fatalf("save artifact: %v", err)
	}
	return m, ref
}

func TestRegistryEmpty(t *testing.T) {
	reg, err := New(newTestStore(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if reg.Active() != nil {
		t.Error("empty registry should have no active version")
	}
	if reg.ActiveModel() != nil {
		t.Error("empty registry should have no active model")
	}
}

func TestRegistryRegisterAndPromote(t *testing.T) {
	st := newTestStore(t)
	reg, err := New(st)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	dir := t.TempDir()
	m1, ref1 := trainedModel(t, dir, "v1")

	v1 := &store.ModelVersion{ValidationScore: 0.8, ArtifactRef: ref1, Status: store.VersionStatusPromoted}
	if err := reg.Register(v1, m1, true); err != nil {
		t.Fatalf("register v1: %v", err)
	}

	active := reg.Active()
	if active == nil || active.VersionID != v1.VersionID {
		t.Fatalf("active = %+v, want v1", active)
	}
	if reg.ActiveModel() != m1 {
		t.Error("active model snapshot should be the registered model")
	}

	// A rejected registration records history but leaves v1 active.
	m2, ref2 := trainedModel(t, dir, "v2")
	v2 := &store.ModelVersion{ValidationScore: 0.5, ArtifactRef: ref2, Status: store.VersionStatusRejected}
	if err := reg.Register(v2, m2, false); err != nil {
		t.Fatalf("register v2: %v", err)
	}
	if got := reg.Active(); got == nil || got.VersionID != v1.VersionID {
		t.Errorf("active after rejected registration = %+v, want v1", got)
	}

	versions, err := reg.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("version history length = %d, want 2", len(versions))
	}
}

func TestRegistryPromoteAndRollback(t *testing.T) {
	st := newTestStore(t)
	reg, err := New(st)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	dir := t.TempDir()
	m1, ref1 := trainedModel(t, dir, "v1")
	m2, ref2 := trainedModel(t, dir, "v2")

	v1 := &store.ModelVersion{ValidationScore: 0.7, ArtifactRef: ref1, Status: store.VersionStatusPromoted}
	v2 := &store.ModelVersion{ValidationScore: 0.75, ArtifactRef: ref2, Status: store.VersionStatusPromoted}
	if err := reg.Register(v1, m1, true); err != nil {
		t.Fatalf("register v1: %v", err)
	}
	if err := reg.Register(v2, m2, true); err != nil {
		t.Fatalf("register v2: %v", err)
	}

	if got := reg.Active(); got.VersionID != v2.VersionID {
		t.Fatalf("active = %d, want v2", got.VersionID)
	}

	// Roll back to v1 and verify the model artifact was reloaded.
	if err := reg.RollbackTo(v1.VersionID); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if got := reg.Active(); got.VersionID != v1.VersionID {
		t.Errorf("active after rollback = %d, want v1", got.VersionID)
	}
	if reg.ActiveModel() == nil {
		t.Error("rollback should load the v1 artifact")
	}

	// Promote forward again.
	if err := reg.Promote(v2.VersionID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if got := reg.Active(); got.VersionID != v2.VersionID {
		t.Errorf("active after promote = %d, want v2", got.VersionID)
	}
}

func TestRegistryPromoteUnknownVersion(t *testing.T) {
	reg, err := New(newTestStore(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := reg.Promote(12345); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("got %v, want ErrVersionNotFound", err)
	}
}

func TestRegistryReloadsActiveOnStartup(t *testing.T) {
	st := newTestStore(t)
	reg, err := New(st)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	m1, ref1 := trainedModel(t, t.TempDir(), "v1")
	v1 := &store.ModelVersion{ValidationScore: 0.8, ArtifactRef: ref1, Status: store.VersionStatusPromoted}
	if err := reg.Register(v1, m1, true); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A fresh registry over the same store picks up the active version
	// and reloads its artifact.
	reg2, err := New(st)
	if err != nil {
		t.Fatalf("reopen registry: %v", err)
	}
	if got := reg2.Active(); got == nil || got.VersionID != v1.VersionID {
		t.Fatalf("reloaded active = %+v, want v1", got)
	}
	if reg2.ActiveModel() == nil {
		t.Error("reloaded registry should have loaded the artifact")
	}
}
