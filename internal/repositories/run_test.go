package repositories

import (
	"database/sql"
	"testing"

	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	return db
}

func newDedupRun(playlistID string) *models.Run {
	return models.NewRun(models.RunOpts{
		PlaylistID:      playlistID,
		PlaylistName:    "Test Mix",
		Kind:            models.RunKindDedup,
		TotalTracks:     50,
		DuplicatesFound: 3,
		TracksRemoved:   4,
	})
}

func TestRunRepositoryCreateAndGet(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	run := newDedupRun("p1")
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if run.ID() == "" {
		t.Error("Create did not assign an ID")
	}
	if run.Sequence() != 1 {
		t.Errorf("Sequence = %d, want 1", run.Sequence())
	}

	got, err := repo.Get(run.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.PlaylistID() != "p1" || got.Kind() != models.RunKindDedup {
		t.Errorf("got = %+v", got)
	}
	if got.TotalTracks() != 50 || got.DuplicatesFound() != 3 || got.TracksRemoved() != 4 {
		t.Errorf("counters = %d/%d/%d", got.TotalTracks(), got.DuplicatesFound(), got.TracksRemoved())
	}
}

func TestRunRepositorySequenceIncrements(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	first := newDedupRun("p1")
	second := newDedupRun("p2")

	if err := repo.Create(first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if first.Sequence() != 1 || second.Sequence() != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", first.Sequence(), second.Sequence())
	}
}

func TestRunRepositoryCreateValidates(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	invalid := models.NewRun(models.RunOpts{Kind: "bogus"})
	if err := repo.Create(invalid); err == nil {
		t.Error("expected validation error for bogus kind")
	}
}

func TestRunRepositoryUpdate(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	run := newDedupRun("p1")
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	restored, err := repo.Get(run.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	updated := models.RestoreRun(restored.ID(), restored.Sequence(), models.RunOpts{
		PlaylistID:    restored.PlaylistID(),
		PlaylistName:  restored.PlaylistName(),
		Kind:          restored.Kind(),
		TotalTracks:   restored.TotalTracks(),
		TracksRemoved: 9,
	}, restored.CreatedAt(), restored.UpdatedAt())

	if err := repo.Update(updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(run.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TracksRemoved() != 9 {
		t.Errorf("TracksRemoved = %d, want 9", got.TracksRemoved())
	}
}

func TestRunRepositoryDeleteIsSoft(t *testing.T) {
	db := newTestDB(t)
	repo := NewRunRepository(db)

	run := newDedupRun("p1")
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(run.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.Get(run.ID()); err == nil {
		t.Error("Get() should fail for a deleted run")
	}

	// The row survives with deleted_at set.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", run.ID()).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}

	if err := repo.Delete(run.ID()); err == nil {
		t.Error("second Delete() should report not found")
	}
}

func TestRunRepositoryList(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	runs := []*models.Run{
		newDedupRun("p1"),
		newDedupRun("p2"),
		models.NewRun(models.RunOpts{
			PlaylistID:   "p1",
			PlaylistName: "Test Mix",
			Kind:         models.RunKindSort,
			TotalTracks:  50,
			MovesApplied: 12,
		}),
	}
	for _, run := range runs {
		if err := repo.Create(run); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(map[string]any{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}

	// Most recent first.
	if all[0].Sequence() != 3 || all[2].Sequence() != 1 {
		t.Errorf("order = %d, %d, %d", all[0].Sequence(), all[1].Sequence(), all[2].Sequence())
	}

	byPlaylist, err := repo.List(map[string]any{"playlist_id": "p1"})
	if err != nil {
		t.Fatalf("List(playlist_id) error = %v", err)
	}
	if len(byPlaylist) != 2 {
		t.Errorf("got %d runs for p1, want 2", len(byPlaylist))
	}

	byKind, err := repo.List(map[string]any{"kind": models.RunKindSort})
	if err != nil {
		t.Fatalf("List(kind) error = %v", err)
	}
	if len(byKind) != 1 || byKind[0].MovesApplied() != 12 {
		t.Errorf("sort runs = %v", byKind)
	}

	limited, err := repo.List(map[string]any{"limit": 2})
	if err != nil {
		t.Fatalf("List(limit) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}
}
