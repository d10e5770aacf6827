package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Label values accepted by the training examples table.
const (
	LabelGood             = "good"
	LabelNeedsImprovement = "needs_improvement"
)

// ErrDuplicateLabel is returned when a label for a (session, aspect) pair
// already exists and no overwrite was requested.
var ErrDuplicateLabel = errors.New("label already exists for session and aspect")

// TrainingExample is one labeled session-aspect pair with its feature
// vector. Immutable once created; corrections replace the row via the
// overwrite flag rather than mutating it.
type TrainingExample struct {
	ID          int64
	SessionID   string
	Aspect      string
	Label       string
	Features    []float64
	SourceVideo string
	CreatedAt   time.Time
}

// ExampleRepository provides access to training examples.
type ExampleRepository struct {
	db *sql.DB
}

// Examples returns the training example repository for this store.
func (s *Store) Examples() *ExampleRepository {
	return &ExampleRepository{db: s.db}
}

// Create inserts a new training example. If an example for the same
// (session_id, aspect) already exists it fails with ErrDuplicateLabel,
// unless overwrite is set, in which case the existing row is replaced.
func (r *ExampleRepository) Create(e *TrainingExample, overwrite bool) error {
	features, err := json.Marshal(e.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	// Without overwrite the insert is plain, so a duplicate surfaces as a
	// unique-constraint violation from the statement itself. This keeps
	// the duplicate check and the insert atomic under concurrent submits.
	query := `INSERT INTO training_examples (session_id, aspect, label, features, source_video, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`
	if overwrite {
		query += `
		 ON CONFLICT(session_id, aspect) DO UPDATE SET
			label = excluded.label,
			features = excluded.features,
			source_video = excluded.source_video,
			created_at = excluded.created_at`
	}

	e.CreatedAt = time.Now()
	res, err := r.db.Exec(query,
		e.SessionID, e.Aspect, e.Label, string(features), e.SourceVideo, e.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: session %s aspect %s", ErrDuplicateLabel, e.SessionID, e.Aspect)
		}
		return err
	}

	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// List retrieves all training examples ordered by id. A non-zero since
// restricts the result to examples created at or after that time.
func (r *ExampleRepository) List(since time.Time) ([]TrainingExample, error) {
	query := `SELECT id, session_id, aspect, label, features, source_video, created_at
		 FROM training_examples`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examples []TrainingExample
	for rows.Next() {
		var e TrainingExample
		var features string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Aspect, &e.Label, &features, &e.SourceVideo, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return nil, fmt.Errorf("decode features for example %d: %w", e.ID, err)
		}
		examples = append(examples, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return examples, nil
}

// Count returns the total number of stored examples.
func (r *ExampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM training_examples`).Scan(&n)
	return n, err
}

// CountAfter returns the number of examples with an id greater than afterID.
func (r *ExampleRepository) CountAfter(afterID int64) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM training_examples WHERE id > ?`, afterID).Scan(&n)
	return n, err
}

// MaxID returns the largest example id, or 0 when the table is empty.
func (r *ExampleRepository) MaxID() (int64, error) {
	var id sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(id) FROM training_examples`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// Delete removes all examples for a session. Explicit deletion only; the
// trainer never calls this.
func (r *ExampleRepository) Delete(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM training_examples WHERE session_id = ?`, sessionID)
	return err
}
