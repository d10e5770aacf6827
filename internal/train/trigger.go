package train

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/fretsense/internal/store"
)

// settingLastTrainedID is the settings key holding the id of the newest
// example seen by the most recent training run.
const settingLastTrainedID = "last_trained_example_id"

// ShouldRetrain is the pure trigger decision: retrain once the number of
// new labeled examples reaches the configured threshold. Calling it
// repeatedly with the same inputs returns the same answer.
func ShouldRetrain(newExampleCount, threshold int) bool {
	return threshold > 0 && newExampleCount >= threshold
}

// Trigger tracks how many labeled examples arrived since the last training
// run. The high-water mark persists in settings so restarts neither lose
// nor double-count examples. The counter resets on every trainer
// invocation, successful or not, so a bad batch cannot cause retry storms.
type Trigger struct {
	examples  *store.ExampleRepository
	settings  *store.SettingsRepository
	threshold int
}

// NewTrigger creates a Trigger with the configured example-count threshold.
func NewTrigger(st *store.Store, threshold int) *Trigger {
	return &Trigger{
		examples:  st.Examples(),
		settings:  st.Settings(),
		threshold: threshold,
	}
}

// NewExampleCount returns the number of examples stored since the last
// training run.
func (t *Trigger) NewExampleCount() (int, error) {
	lastID, err := t.lastTrainedID()
	if err != nil {
		return 0, err
	}
	return t.examples.CountAfter(lastID)
}

// ShouldRetrain reports whether enough new examples accumulated to justify
// a training run.
func (t *Trigger) ShouldRetrain() (bool, error) {
	count, err := t.NewExampleCount()
	if err != nil {
		return false, err
	}
	return ShouldRetrain(count, t.threshold), nil
}

// Reset moves the high-water mark to the newest stored example.
func (t *Trigger) Reset() error {
	maxID, err := t.examples.MaxID()
	if err != nil {
		return fmt.Errorf("reset trigger: %w", err)
	}
	return t.settings.Set(settingLastTrainedID, strconv.FormatInt(maxID, 10))
}

func (t *Trigger) lastTrainedID() (int64, error) {
	value, err := t.settings.Get(settingLastTrainedID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s setting %q: %w", settingLastTrainedID, value, err)
	}
	return id, nil
}
