package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Version statuses as recorded in the append-only history.
const (
	VersionStatusPromoted = "promoted"
	VersionStatusRejected = "rejected"
)

// ModelVersion is one entry in the append-only model history. At most one
// version is active at any time.
type ModelVersion struct {
	VersionID       int64
	CreatedAt       time.Time
	ExampleCount    int
	ValidationScore float64
	IsActive        bool
	ArtifactRef     string
	Status          string
	Reason          string
}

// VersionRepository provides access to the model version history.
type VersionRepository struct {
	db *sql.DB
}

// Versions returns the model version repository for this store.
func (s *Store) Versions() *VersionRepository {
	return &VersionRepository{db: s.db}
}

// Create appends a new version. The assigned version id is written back.
// Activation is a separate step so creation and promotion stay auditable.
func (r *VersionRepository) Create(v *ModelVersion) error {
	v.CreatedAt = time.Now()
	res, err := r.db.Exec(
		`INSERT INTO model_versions (created_at, example_count, validation_score, is_active, artifact_ref, status, reason)
		 VALUES (?, ?, ?, 0, ?, ?, ?)`,
		v.CreatedAt, v.ExampleCount, v.ValidationScore, v.ArtifactRef, v.Status, v.Reason,
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.VersionID = id
	return nil
}

// GetByID retrieves a version by its id.
func (r *VersionRepository) GetByID(versionID int64) (*ModelVersion, error) {
	v, err := scanVersion(r.db.QueryRow(
		`SELECT version_id, created_at, example_count, validation_score, is_active, artifact_ref, status, reason
		 FROM model_versions WHERE version_id = ?`, versionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: model version %d", ErrNotFound, versionID)
		}
		return nil, err
	}
	return v, nil
}

// GetActive retrieves the active version, or nil when none has ever been
// promoted.
func (r *VersionRepository) GetActive() (*ModelVersion, error) {
	v, err := scanVersion(r.db.QueryRow(
		`SELECT version_id, created_at, example_count, validation_score, is_active, artifact_ref, status, reason
		 FROM model_versions WHERE is_active = 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Activate marks the given version active and every other version inactive
// in a single transaction, preserving the single-active invariant even if
// a reader queries between scoring calls.
func (r *VersionRepository) Activate(versionID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE model_versions SET is_active = (version_id = ?)`, versionID)
	if err != nil {
		return err
	}

	// UPDATE touches every row, so verify the target exists separately.
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	var exists int64
	if err := tx.QueryRow(`SELECT version_id FROM model_versions WHERE version_id = ?`, versionID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: model version %d", ErrNotFound, versionID)
		}
		return err
	}

	return tx.Commit()
}

// List retrieves all versions ordered by version id.
func (r *VersionRepository) List() ([]ModelVersion, error) {
	rows, err := r.db.Query(
		`SELECT version_id, created_at, example_count, validation_score, is_active, artifact_ref, status, reason
		 FROM model_versions ORDER BY version_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []ModelVersion
	for rows.Next() {
		var v ModelVersion
		var active int
		if err := rows.Scan(&v.VersionID, &v.CreatedAt, &v.ExampleCount, &v.ValidationScore, &active, &v.ArtifactRef, &v.Status, &v.Reason); err != nil {
			return nil, err
		}
		v.IsActive = active == 1
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return versions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*ModelVersion, error) {
	var v ModelVersion
	var active int
	err := row.Scan(&v.VersionID, &v.CreatedAt, &v.ExampleCount, &v.ValidationScore, &active, &v.ArtifactRef, &v.Status, &v.Reason)
	if err != nil {
		return nil, err
	}
	v.IsActive = active == 1
	return &v, nil
}
