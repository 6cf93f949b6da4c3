package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/shared"
)

// RunRepository implements models.Repository[*models.Run] for run history.
//
// Every executed dedup or sort operation is recorded so past reconciliation
// activity can be inspected from the CLI.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new [models.Run] into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, sequence, playlist_id, playlist_name, kind, total_tracks,
			duplicates_found, tracks_removed, moves_applied, error_count, conflict, dry_run,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.PlaylistID(),
		run.PlaylistName(),
		run.Kind(),
		run.TotalTracks(),
		run.DuplicatesFound(),
		run.TracksRemoved(),
		run.MovesApplied(),
		run.ErrorCount(),
		run.Conflict(),
		run.DryRun(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := selectRuns + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing run's counters and timestamps.
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	run.Touch()

	query := `
		UPDATE runs
		SET total_tracks = ?, duplicates_found = ?, tracks_removed = ?, moves_applied = ?,
			error_count = ?, conflict = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.TotalTracks(),
		run.DuplicatesFound(),
		run.TracksRemoved(),
		run.MovesApplied(),
		run.ErrorCount(),
		run.Conflict(),
		run.UpdatedAt(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a run by setting deleted_at.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// List retrieves runs matching the given criteria, most recent first.
//
// Supported criteria: "playlist_id" (string), "kind" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := selectRuns + ` WHERE deleted_at IS NULL`
	var args []any

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}
	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

const selectRuns = `
	SELECT id, sequence, playlist_id, playlist_name, kind, total_tracks,
		duplicates_found, tracks_removed, moves_applied, error_count, conflict, dry_run,
		created_at, updated_at
	FROM runs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanOne(row *sql.Row) (*models.Run, error) {
	run, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	return run, err
}

func (r *RunRepository) scanRow(row rowScanner) (*models.Run, error) {
	var (
		id                 string
		sequence           int
		opts               models.RunOpts
		createdAt, updated time.Time
	)

	err := row.Scan(
		&id,
		&sequence,
		&opts.PlaylistID,
		&opts.PlaylistName,
		&opts.Kind,
		&opts.TotalTracks,
		&opts.DuplicatesFound,
		&opts.TracksRemoved,
		&opts.MovesApplied,
		&opts.ErrorCount,
		&opts.Conflict,
		&opts.DryRun,
		&createdAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	return models.RestoreRun(id, sequence, opts, createdAt, updated), nil
}
