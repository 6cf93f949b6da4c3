package models

import (
	"fmt"
	"time"
)

// Run kinds.
const (
	RunKindDedup = "dedup"
	RunKindSort  = "sort"
)

// Run records one completed reconciliation operation against a playlist.
type Run struct {
	id              string
	sequence        int
	playlistID      string
	playlistName    string
	kind            string
	totalTracks     int
	duplicatesFound int
	tracksRemoved   int
	movesApplied    int
	errorCount      int
	conflict        bool
	dryRun          bool
	createdAt       time.Time
	updatedAt       time.Time
}

// RunOpts carries the fields for constructing a Run.
type RunOpts struct {
	PlaylistID      string
	PlaylistName    string
	Kind            string
	TotalTracks     int
	DuplicatesFound int
	TracksRemoved   int
	MovesApplied    int
	ErrorCount      int
	Conflict        bool
	DryRun          bool
}

// NewRun creates a Run from the given options with timestamps set to now.
func NewRun(opts RunOpts) *Run {
	now := time.Now().UTC()
	return &Run{
		playlistID:      opts.PlaylistID,
		playlistName:    opts.PlaylistName,
		kind:            opts.Kind,
		totalTracks:     opts.TotalTracks,
		duplicatesFound: opts.DuplicatesFound,
		tracksRemoved:   opts.TracksRemoved,
		movesApplied:    opts.MovesApplied,
		errorCount:      opts.ErrorCount,
		conflict:        opts.Conflict,
		dryRun:          opts.DryRun,
		createdAt:       now,
		updatedAt:       now,
	}
}

// RestoreRun rebuilds a Run from persisted fields. Used by repositories.
func RestoreRun(id string, sequence int, opts RunOpts, createdAt, updatedAt time.Time) *Run {
	run := NewRun(opts)
	run.id = id
	run.sequence = sequence
	run.createdAt = createdAt
	run.updatedAt = updatedAt
	return run
}

func (r *Run) ID() string           { return r.id }
func (r *Run) Sequence() int        { return r.sequence }
func (r *Run) PlaylistID() string   { return r.playlistID }
func (r *Run) PlaylistName() string { return r.playlistName }
func (r *Run) Kind() string         { return r.kind }
func (r *Run) TotalTracks() int     { return r.totalTracks }
func (r *Run) DuplicatesFound() int { return r.duplicatesFound }
func (r *Run) TracksRemoved() int   { return r.tracksRemoved }
func (r *Run) MovesApplied() int    { return r.movesApplied }
func (r *Run) ErrorCount() int      { return r.errorCount }
func (r *Run) Conflict() bool       { return r.conflict }
func (r *Run) DryRun() bool         { return r.dryRun }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }

// SetID assigns the generated identifier. Called by the repository on Create.
func (r *Run) SetID(id string) { r.id = id }

// SetSequence assigns the generated sequence number. Called by the repository on Create.
func (r *Run) SetSequence(sequence int) { r.sequence = sequence }

// Touch updates the modification timestamp.
func (r *Run) Touch() { r.updatedAt = time.Now().UTC() }

// Validate checks that required fields are present.
func (r *Run) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run id is required")
	}
	if r.playlistID == "" {
		return fmt.Errorf("run playlist_id is required")
	}
	if r.kind != RunKindDedup && r.kind != RunKindSort {
		return fmt.Errorf("invalid run kind: %q", r.kind)
	}
	return nil
}
