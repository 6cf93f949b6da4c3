package tasks

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	itest "github.com/tmdecker/playlist-manager/internal/testing"
)

func TestFindDuplicateGroups(t *testing.T) {
	items := []PlaylistItem{
		{Position: 0, URI: "u1", Name: "Alpha", Artists: []string{"X"}},
		{Position: 1, URI: "u2", Name: "Beta", Artists: []string{"X"}},
		{Position: 2, URI: "u1", Name: "Alpha", Artists: []string{"X"}},
		{Position: 3, URI: "u3", Name: "alpha ", Artists: []string{"x"}},
		{Position: 4, URI: "u4", Name: "Gamma", Artists: []string{"Y"}},
	}

	groups, removals, uriFreq := findDuplicateGroups(items)

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	group := groups[0]
	if group.Count != 3 {
		t.Errorf("Count = %d, want 3", group.Count)
	}
	if !reflect.DeepEqual(group.Positions, []int{0, 2, 3}) {
		t.Errorf("Positions = %v, want [0 2 3]", group.Positions)
	}
	if !group.HasIdenticalURIs {
		t.Error("HasIdenticalURIs = false, want true")
	}

	// The keeper is the lowest position; only later occurrences are candidates.
	if len(removals) != 2 {
		t.Fatalf("got %d removals, want 2", len(removals))
	}
	if removals[0].Position != 2 || removals[1].Position != 3 {
		t.Errorf("removal positions = %d, %d, want 2, 3", removals[0].Position, removals[1].Position)
	}

	if uriFreq["u1"] != 2 || uriFreq["u2"] != 1 {
		t.Errorf("uriFreq = %v", uriFreq)
	}
}

func TestFindDuplicateGroupsSkipsUnplayableSlots(t *testing.T) {
	items := []PlaylistItem{
		{Position: 0, URI: "u1", Name: "Alpha", Artists: []string{"X"}},
		{Position: 1},
		{Position: 2},
		{Position: 3, URI: "u2", Name: "Alpha", Artists: []string{"X"}},
	}

	groups, removals, _ := findDuplicateGroups(items)
	if len(groups) != 1 || len(removals) != 1 {
		t.Fatalf("groups = %d, removals = %d, want 1 and 1", len(groups), len(removals))
	}
	if removals[0].Position != 3 {
		t.Errorf("removal position = %d, want 3", removals[0].Position)
	}
}

func TestFindDuplicateGroupsIsDeterministic(t *testing.T) {
	items := []PlaylistItem{
		{Position: 0, URI: "u1", Name: "A", Artists: []string{"X"}},
		{Position: 1, URI: "u2", Name: "B", Artists: []string{"X"}},
		{Position: 2, URI: "u3", Name: "A", Artists: []string{"X"}},
		{Position: 3, URI: "u4", Name: "B", Artists: []string{"X"}},
		{Position: 4, URI: "u5", Name: "C", Artists: []string{"X"}},
		{Position: 5, URI: "u6", Name: "C", Artists: []string{"X"}},
	}

	groups1, removals1, _ := findDuplicateGroups(items)
	groups2, removals2, _ := findDuplicateGroups(items)

	if !reflect.DeepEqual(groups1, groups2) {
		t.Error("groups differ between identical runs")
	}
	if !reflect.DeepEqual(removals1, removals2) {
		t.Error("removals differ between identical runs")
	}
}

func TestPartitionRemovals(t *testing.T) {
	removals := []Removal{
		{Position: 2, URI: "shared"},
		{Position: 5, URI: "solo1"},
		{Position: 3, URI: "solo2"},
	}
	// "shared" also occurs at its group's keeper position, "elsewhere" style
	// recurrence counts the same way: the whole snapshot decides.
	uriFreq := map[string]int{"shared": 2, "solo1": 1, "solo2": 1}

	unique, shared, sharedOrder := partitionRemovals(removals, uriFreq)

	if len(shared["shared"]) != 1 {
		t.Errorf("shared[shared] = %v", shared["shared"])
	}
	if !reflect.DeepEqual(sharedOrder, []string{"shared"}) {
		t.Errorf("sharedOrder = %v", sharedOrder)
	}

	// Unique removals come back in descending position order.
	if len(unique) != 2 || unique[0].Position != 5 || unique[1].Position != 3 {
		t.Errorf("unique = %v, want positions 5 then 3", unique)
	}
}

// Five tracks where the keeper's URI recurs later (u1 at 0 and 2) and a
// third copy of the same song carries a distinct URI (u3). The engine must
// keep exactly the first occurrence and leave unrelated tracks alone.
func scenarioTracks() []itest.FakeTrack {
	return []itest.FakeTrack{
		{URI: "u1", Name: "Keeper", Artists: []string{"X"}},
		{URI: "u2", Name: "Just Fine", Artists: []string{"X"}},
		{URI: "u1", Name: "Keeper", Artists: []string{"X"}},
		{URI: "u3", Name: "Keeper", Artists: []string{"X"}},
		{URI: "u4", Name: "Lonely", Artists: []string{"X"}},
	}
}

func TestDedupRemovesDuplicatesKeepingEarliest(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Mix", scenarioTracks())
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	want := []string{"u1", "u2", "u4"}
	if got := api.URIs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("final playlist = %v, want %v", got, want)
	}

	if report.DuplicatesFound != 1 {
		t.Errorf("DuplicatesFound = %d, want 1", report.DuplicatesFound)
	}
	if report.TracksRemoved != 2 {
		t.Errorf("TracksRemoved = %d, want 2", report.TracksRemoved)
	}
	if report.PlannedRemovals != 2 {
		t.Errorf("PlannedRemovals = %d, want 2", report.PlannedRemovals)
	}
	if report.Conflict || len(report.Errors) != 0 {
		t.Errorf("unexpected conflict=%v errors=%v", report.Conflict, report.Errors)
	}
	if report.FinalTrackCount != 3 {
		t.Errorf("FinalTrackCount = %d, want 3", report.FinalTrackCount)
	}
	if report.InitialSnapshot == report.FinalSnapshot {
		t.Error("snapshot should have advanced")
	}
}

func TestDedupSharedURIUsesRemoveAllThenReadd(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Mix", scenarioTracks())
	engine := newTestEngine(api)

	if _, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{}); err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	var removeAllIdx, insertIdx = -1, -1
	for i, call := range api.Calls {
		if strings.HasPrefix(call, "remove_all uri=u1") {
			removeAllIdx = i
		}
		if strings.HasPrefix(call, "insert uri=u1 position=0") {
			insertIdx = i
		}
	}

	if removeAllIdx == -1 || insertIdx == -1 {
		t.Fatalf("expected remove_all and insert calls, got %v", api.Calls)
	}
	if insertIdx < removeAllIdx {
		t.Error("insert happened before remove_all")
	}
}

func TestDedupDryRunDoesNotMutate(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Mix", scenarioTracks())
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{DryRun: true})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	if !report.DryRun {
		t.Error("DryRun = false")
	}
	if report.PlannedRemovals != 2 {
		t.Errorf("PlannedRemovals = %d, want 2", report.PlannedRemovals)
	}
	if len(api.URIs()) != 5 {
		t.Errorf("playlist mutated during dry run: %v", api.URIs())
	}

	for _, call := range api.Calls {
		if strings.HasPrefix(call, "remove") || strings.HasPrefix(call, "insert") || strings.HasPrefix(call, "reorder") {
			t.Errorf("dry run issued mutation %q", call)
		}
	}
}

func TestDedupNoDuplicates(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Clean", []itest.FakeTrack{
		{URI: "u1", Name: "A", Artists: []string{"X"}},
		{URI: "u2", Name: "B", Artists: []string{"X"}},
	})
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	if report.DuplicatesFound != 0 || report.TracksRemoved != 0 {
		t.Errorf("report = %+v, want no duplicates", report)
	}
	if len(api.URIs()) != 2 {
		t.Error("playlist mutated despite no duplicates")
	}
}

func TestDedupAbortsOnExternalModification(t *testing.T) {
	// Two duplicate pairs with distinct URIs produce two independent
	// position-specific removals. The snapshot changes externally right
	// after the first, so the second must never run.
	api := itest.NewFakePlaylistAPI("Contested", []itest.FakeTrack{
		{URI: "a1", Name: "First", Artists: []string{"X"}},
		{URI: "a2", Name: "First", Artists: []string{"X"}},
		{URI: "b1", Name: "Second", Artists: []string{"X"}},
		{URI: "b2", Name: "Second", Artists: []string{"X"}},
	})
	api.ExternalBumpAfter = 1
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	if !report.Conflict {
		t.Fatal("Conflict = false, want true")
	}
	if report.TracksRemoved != 1 {
		t.Errorf("TracksRemoved = %d, want 1", report.TracksRemoved)
	}
	if report.SkippedOps != 1 {
		t.Errorf("SkippedOps = %d, want 1", report.SkippedOps)
	}
	if len(api.URIs()) != 3 {
		t.Errorf("final playlist = %v, want 3 tracks", api.URIs())
	}
}

func TestDedupReaddFailureIsOwnErrorClass(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Fragile", []itest.FakeTrack{
		{URI: "u1", Name: "Twice", Artists: []string{"X"}},
		{URI: "u1", Name: "Twice", Artists: []string{"X"}},
	})
	api.InsertErr = errors.New("insert rejected")
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	if report.TracksRemoved != 0 {
		t.Errorf("TracksRemoved = %d, want 0", report.TracksRemoved)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", report.Errors)
	}
	if report.Errors[0].Kind != "readd_failed" {
		t.Errorf("error kind = %q, want readd_failed", report.Errors[0].Kind)
	}
	if !strings.Contains(report.Errors[0].Message, ErrReaddFailed.Error()) {
		t.Errorf("message %q does not mention re-add failure", report.Errors[0].Message)
	}
}

func TestDedupVerifiesTrackBeforeSpecificRemoval(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Verify", []itest.FakeTrack{
		{URI: "u1", Name: "Dup", Artists: []string{"X"}},
		{URI: "u2", Name: "Dup", Artists: []string{"X"}},
	})
	engine := newTestEngine(api)

	if _, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{}); err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	var sawVerify bool
	for _, call := range api.Calls {
		if call == "page offset=1 limit=1" {
			sawVerify = true
		}
	}
	if !sawVerify {
		t.Errorf("no single-item verification page fetch in %v", api.Calls)
	}
	if got := api.URIs(); !reflect.DeepEqual(got, []string{"u1"}) {
		t.Errorf("final playlist = %v, want [u1]", got)
	}
}

func TestDedupContinuesAfterIndividualFailure(t *testing.T) {
	api := itest.NewFakePlaylistAPI("Partial", scenarioTracks())
	api.RemoveErr = errors.New("remove rejected")
	engine := newTestEngine(api)

	report, err := engine.Dedup(context.Background(), "playlist1", DedupOpts{})
	if err != nil {
		t.Fatalf("Dedup() error = %v", err)
	}

	// The shared-URI pass (remove_all + insert) still succeeds; only the
	// position-specific removal of u3 fails and is recorded.
	if report.TracksRemoved != 1 {
		t.Errorf("TracksRemoved = %d, want 1", report.TracksRemoved)
	}
	if len(report.Errors) != 1 || report.Errors[0].Kind != "api_error" {
		t.Errorf("Errors = %v, want one api_error", report.Errors)
	}
	if report.Conflict {
		t.Error("individual failure must not flag a conflict")
	}
}
