package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrReaddFailed marks the failure mode where all occurrences of a track
// were removed remotely but the surviving copy could not be re-added. The
// playlist is now missing the track, so this is reported as its own error
// class instead of a generic API failure.
var ErrReaddFailed = errors.New("failed to re-add track after removing all occurrences")

// Error kinds recorded in [OpError].
const (
	opErrAPI              = "api_error"
	opErrReadd            = "readd_failed"
	opErrPositionNotFound = "position_not_found"
	opErrTrackMismatch    = "track_mismatch"
)

// DuplicateGroup is a set of playlist entries sharing a dedup key, ordered
// by position. The occurrence at the lowest position is the keeper; the
// rest are removal candidates.
type DuplicateGroup struct {
	Key              string   `json:"key"`
	Name             string   `json:"name"`
	Artist           string   `json:"artist"`
	Count            int      `json:"count"`
	Positions        []int    `json:"positions"`
	URIs             []string `json:"uris"`
	HasIdenticalURIs bool     `json:"has_identical_uris"`
}

// Removal is one candidate playlist entry scheduled for removal.
type Removal struct {
	Position int    `json:"position"`
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Key      string `json:"key"`
}

// OpError records a single failed or skipped execution step.
type OpError struct {
	Position int    `json:"position"`
	Kind     string `json:"kind"`
	Message  string `json:"error"`
}

type opKind int

const (
	opRemoveAllReadd opKind = iota
	opRemoveSpecific
)

// plannedOp is a mutation scheduled against the playlist. Positions are
// simulated current positions, valid only when ops execute in plan order.
type plannedOp struct {
	kind             opKind
	uri              string
	positions        []int     // all simulated occurrences (remove-all + re-add)
	targetPosition   int       // re-add position (remove-all + re-add)
	currentPosition  int       // simulated position (specific removal)
	originalPosition int       // snapshot position (specific removal)
	removals         []Removal // candidates this op accounts for
}

// DedupOpts configures a dedup run.
type DedupOpts struct {
	DryRun bool
}

// DedupReport summarizes a duplicate-removal run.
type DedupReport struct {
	PlaylistID      string           `json:"playlist_id"`
	PlaylistName    string           `json:"playlist_name"`
	TotalTracks     int              `json:"total_tracks"`
	FinalTrackCount int              `json:"final_track_count,omitempty"`
	UniqueTracks    int              `json:"unique_tracks"`
	DuplicatesFound int              `json:"duplicates_found"`
	TracksRemoved   int              `json:"tracks_removed"`
	Groups          []DuplicateGroup `json:"duplicate_groups,omitempty"`
	PlannedRemovals int              `json:"planned_removals"`
	Errors          []OpError        `json:"errors,omitempty"`
	SkippedOps      int              `json:"skipped_ops,omitempty"`
	Conflict        bool             `json:"conflict,omitempty"`
	DryRun          bool             `json:"dry_run"`
	InitialSnapshot string           `json:"initial_snapshot"`
	FinalSnapshot   string           `json:"final_snapshot,omitempty"`
}

// findDuplicateGroups groups snapshot items by dedup key and returns the
// groups with two or more occurrences, their removal candidates, and the
// URI frequency table for the whole snapshot.
//
// Groups and candidates come back in first-appearance order, so planning a
// fixed snapshot twice yields identical results.
func findDuplicateGroups(items []PlaylistItem) ([]DuplicateGroup, []Removal, map[string]int) {
	byKey := make(map[string][]PlaylistItem)
	var keyOrder []string
	uriFreq := make(map[string]int)

	for _, item := range items {
		if item.URI != "" {
			uriFreq[item.URI]++
		}
		if item.Name == "" {
			continue
		}
		key := item.DedupKey()
		if _, seen := byKey[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], item)
	}

	var groups []DuplicateGroup
	var removals []Removal

	for _, key := range keyOrder {
		occurrences := byKey[key]
		if len(occurrences) < 2 {
			continue
		}

		// Items arrive in snapshot order, so occurrences are already
		// sorted by position and the keeper is occurrences[0].
		group := DuplicateGroup{
			Key:    key,
			Name:   occurrences[0].Name,
			Artist: occurrences[0].Artist(),
			Count:  len(occurrences),
		}

		seen := make(map[string]bool)
		for _, occ := range occurrences {
			group.Positions = append(group.Positions, occ.Position)
			group.URIs = append(group.URIs, occ.URI)
			if seen[occ.URI] {
				group.HasIdenticalURIs = true
			}
			seen[occ.URI] = true
		}

		groups = append(groups, group)

		for _, occ := range occurrences[1:] {
			removals = append(removals, Removal{
				Position: occ.Position,
				URI:      occ.URI,
				Name:     occ.Name,
				Artist:   occ.Artist(),
				Key:      key,
			})
		}
	}

	return groups, removals, uriFreq
}

// partitionRemovals splits candidates by global URI frequency. A URI that
// occurs more than once in the whole snapshot cannot be removed by
// position alone (the entries are indistinguishable by identity), so those
// candidates are grouped for the remove-all + re-add strategy. Unique URIs
// get position-specific removal, ordered by descending snapshot position
// so earlier removals never shift later ones.
func partitionRemovals(removals []Removal, uriFreq map[string]int) (unique []Removal, shared map[string][]Removal, sharedOrder []string) {
	shared = make(map[string][]Removal)

	for _, removal := range removals {
		if uriFreq[removal.URI] > 1 {
			if _, seen := shared[removal.URI]; !seen {
				sharedOrder = append(sharedOrder, removal.URI)
			}
			shared[removal.URI] = append(shared[removal.URI], removal)
		} else {
			unique = append(unique, removal)
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Position > unique[j].Position
	})

	return unique, shared, sharedOrder
}

// planOps turns the partitioned candidates into an ordered operation list.
// Every op is applied to the simulation as it is planned, so each op's
// positions describe the state the remote playlist will be in when the op
// executes, not the original snapshot.
func (e *Engine) planOps(snap *Snapshot, unique []Removal, sharedURIs map[string][]Removal, sharedOrder []string) []plannedOp {
	sim := NewSimulation(snap)
	var ops []plannedOp

	for _, uri := range sharedOrder {
		group := sharedURIs[uri]

		positions := sim.Find(uri)
		if len(positions) == 0 {
			e.logger.Warn("uri not found in simulation, skipping group", "uri", uri)
			continue
		}

		keep := positions[0]
		for _, pos := range positions {
			if pos < keep {
				keep = pos
			}
		}

		ops = append(ops, plannedOp{
			kind:           opRemoveAllReadd,
			uri:            uri,
			positions:      positions,
			targetPosition: keep,
			removals:       group,
		})

		sim = sim.RemovePositions(positions)
		sim = sim.InsertAt(uri, keep)
	}

	for _, removal := range unique {
		positions := sim.Find(removal.URI)
		if len(positions) == 0 {
			e.logger.Warn("uri not found in simulation, skipping removal",
				"uri", removal.URI, "position", removal.Position)
			continue
		}

		current := positions[0]
		ops = append(ops, plannedOp{
			kind:             opRemoveSpecific,
			uri:              removal.URI,
			currentPosition:  current,
			originalPosition: removal.Position,
			removals:         []Removal{removal},
		})

		sim = sim.RemovePositions([]int{current})
	}

	return ops
}

// Dedup removes duplicate tracks from a playlist, keeping the occurrence at
// the lowest position of each duplicate group. With opts.DryRun the plan is
// computed and reported but nothing is mutated.
func (e *Engine) Dedup(ctx context.Context, playlistID string, opts DedupOpts) (*DedupReport, error) {
	snap, err := e.Snapshot(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	groups, removals, uriFreq := findDuplicateGroups(snap.Items)
	unique, sharedURIs, sharedOrder := partitionRemovals(removals, uriFreq)

	report := &DedupReport{
		PlaylistID:      playlistID,
		PlaylistName:    snap.Name,
		TotalTracks:     len(snap.Items),
		UniqueTracks:    len(snap.Items) - len(removals),
		DuplicatesFound: len(groups),
		Groups:          groups,
		PlannedRemovals: len(removals),
		DryRun:          opts.DryRun,
		InitialSnapshot: snap.SnapshotID,
	}

	e.logger.Info("dedup plan",
		"playlist", snap.Name,
		"groups", len(groups),
		"unique_uri_removals", len(unique),
		"shared_uri_groups", len(sharedOrder),
		"dry_run", opts.DryRun,
	)

	if opts.DryRun || len(removals) == 0 {
		return report, nil
	}

	ops := e.planOps(snap, unique, sharedURIs, sharedOrder)
	e.executeDedupOps(ctx, snap, ops, report)

	if info, err := e.api.PlaylistInfo(ctx, playlistID); err == nil {
		report.FinalSnapshot = info.SnapshotID
		report.FinalTrackCount = info.Tracks.Total
	} else {
		e.logger.Warn("failed to fetch final playlist state", "error", err)
	}

	e.logger.Info("dedup complete",
		"removed", report.TracksRemoved,
		"errors", len(report.Errors),
		"skipped", report.SkippedOps,
	)

	return report, nil
}

// executeDedupOps applies planned ops in order, validating the snapshot ID
// before each live mutation. On conflict the remaining ops are counted as
// skipped, never attempted. Individual op failures are recorded and the
// plan continues, because later ops' positions do not depend on failed
// position-specific removals having succeeded remotely.
func (e *Engine) executeDedupOps(ctx context.Context, snap *Snapshot, ops []plannedOp, report *DedupReport) {
	expected := snap.SnapshotID

	for i, op := range ops {
		if _, err := e.checkSnapshot(ctx, snap.PlaylistID, expected); err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				e.logger.Error("aborting to prevent data loss", "error", conflict)
				report.Conflict = true
				report.SkippedOps = len(ops) - i
				return
			}
			e.recordOpError(report, op, opErrAPI, err)
			continue
		}

		switch op.kind {
		case opRemoveAllReadd:
			e.logger.Info("removing all occurrences",
				"uri", op.uri, "positions", op.positions, "readd_at", op.targetPosition,
				"op", fmt.Sprintf("%d/%d", i+1, len(ops)))

			newSnapshot, err := e.api.RemoveAllOccurrences(ctx, snap.PlaylistID, op.uri)
			if err != nil {
				e.recordOpError(report, op, opErrAPI, err)
				continue
			}
			expected = newSnapshot

			newSnapshot, err = e.api.InsertAt(ctx, snap.PlaylistID, op.uri, op.targetPosition)
			if err != nil {
				e.recordOpError(report, op, opErrReadd, fmt.Errorf("%w: %w", ErrReaddFailed, err))
				continue
			}
			expected = newSnapshot
			report.TracksRemoved += len(op.removals)

		case opRemoveSpecific:
			e.logger.Info("removing track",
				"uri", op.uri, "original_position", op.originalPosition,
				"current_position", op.currentPosition,
				"op", fmt.Sprintf("%d/%d", i+1, len(ops)))

			page, err := e.api.PlaylistPage(ctx, snap.PlaylistID, op.currentPosition, 1)
			if err != nil {
				e.recordOpError(report, op, opErrAPI, err)
				continue
			}
			if len(page.Items) == 0 || page.Items[0].Track == nil {
				e.recordOpError(report, op, opErrPositionNotFound,
					fmt.Errorf("no track found at position %d", op.currentPosition))
				continue
			}
			if page.Items[0].Track.URI != op.uri {
				e.recordOpError(report, op, opErrTrackMismatch,
					fmt.Errorf("expected %s at position %d, found %s",
						op.uri, op.currentPosition, page.Items[0].Track.URI))
				continue
			}

			newSnapshot, err := e.api.RemoveOccurrences(ctx, snap.PlaylistID, op.uri, []int{op.currentPosition})
			if err != nil {
				e.recordOpError(report, op, opErrAPI, err)
				continue
			}
			expected = newSnapshot
			report.TracksRemoved++
		}
	}
}

// recordOpError appends one [OpError] per candidate the failed op covered.
func (e *Engine) recordOpError(report *DedupReport, op plannedOp, kind string, err error) {
	e.logger.Error("operation failed", "uri", op.uri, "kind", kind, "error", err)
	for _, removal := range op.removals {
		report.Errors = append(report.Errors, OpError{
			Position: removal.Position,
			Kind:     kind,
			Message:  err.Error(),
		})
	}
}
