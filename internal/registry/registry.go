// Package registry tracks model versions and serves the active model to
// scoring calls. Versions are append-only; exactly one is active at a time.
package registry

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/fretsense/internal/model"
	"github.com/ayusman/fretsense/internal/store"
)

// ErrVersionNotFound is returned for promote/rollback of an unknown
// version id. This is a caller contract violation, not a recoverable state.
var ErrVersionNotFound = errors.New("model version not found")

// Registry is the single piece of shared mutable state between scoring
// requests and the trainer. The active-version pointer and its loaded model
// sit behind a RWMutex: a scoring call snapshots the model once at call
// start and is unaffected by a concurrent promotion.
type Registry struct {
	versions *store.VersionRepository

	mu          sync.RWMutex
	active      *store.ModelVersion
	activeModel *model.Model
}

// New creates a Registry over the store and loads the active model, if any.
// A missing or unreadable artifact for the active version logs a warning
// and leaves the registry in rule-based territory rather than failing
// startup.
func New(st *store.Store) (*Registry, error) {
	r := &Registry{versions: st.Versions()}

	active, err := r.versions.GetActive()
	if err != nil {
		return nil, fmt.Errorf("load active version: %w", err)
	}
	if active != nil {
		m, err := model.Load(active.ArtifactRef)
		if err != nil {
			log.Printf("Active model v%d artifact unavailable (%v); scoring will fall back to rules", active.VersionID, err)
		} else {
			r.activeModel = m
		}
		r.active = active
	}

	return r, nil
}

// Active returns a copy of the active version record, or nil if no version
// has ever been promoted.
func (r *Registry) Active() *store.ModelVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil
	}
	v := *r.active
	return &v
}

// ActiveModel returns the loaded active model snapshot, or nil. Callers
// hold the returned pointer for the duration of one scoring call; the
// model itself is immutable after fitting.
func (r *Registry) ActiveModel() *model.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeModel
}

// Register appends a trained version to the history. When promote is set
// the version becomes active in the same call and the in-memory model is
// swapped atomically with the database update.
func (r *Registry) Register(v *store.ModelVersion, m *model.Model, promote bool) error {
	if err := r.versions.Create(v); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	if !promote {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.versions.Activate(v.VersionID); err != nil {
		return fmt.Errorf("activate version %d: %w", v.VersionID, err)
	}
	v.IsActive = true
	r.active = v
	r.activeModel = m
	return nil
}

// Promote manually activates a version by id, loading its artifact.
func (r *Registry) Promote(versionID int64) error {
	return r.activate(versionID)
}

// RollbackTo reverts the active pointer to an earlier version by id.
func (r *Registry) RollbackTo(versionID int64) error {
	return r.activate(versionID)
}

func (r *Registry) activate(versionID int64) error {
	v, err := r.versions.GetByID(versionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
		}
		return err
	}

	m, err := model.Load(v.ArtifactRef)
	if err != nil {
		return fmt.Errorf("load artifact for version %d: %w", versionID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.versions.Activate(versionID); err != nil {
		return err
	}
	v.IsActive = true
	r.active = v
	r.activeModel = m
	return nil
}

// List returns the full version history ordered by version id.
func (r *Registry) List() ([]store.ModelVersion, error) {
	return r.versions.List()
}
