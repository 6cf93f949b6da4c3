package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/tmdecker/playlist-manager/internal/tasks"
	itest "github.com/tmdecker/playlist-manager/internal/testing"
)

func newTestRunner(output io.Writer) *Runner {
	return NewRunner(RunnerOpts{
		Logger: log.New(io.Discard),
		Output: output,
	})
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	runner := newTestRunner(&buf)

	data := map[string]any{"name": "Mix", "tracks": 3}

	if err := runner.writeJSON(data, false); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["name"] != "Mix" {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output missing trailing newline")
	}
}

func TestWriteJSONPretty(t *testing.T) {
	var buf bytes.Buffer
	runner := newTestRunner(&buf)

	if err := runner.writeJSON(map[string]any{"a": 1, "b": 2}, true); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\n  ") {
		t.Errorf("pretty output not indented: %q", buf.String())
	}
}

func TestWriteJSONFailedWriter(t *testing.T) {
	runner := newTestRunner(&itest.FWriter{})

	if err := runner.writeJSON(map[string]any{"a": 1}, false); err == nil {
		t.Error("expected error from failing writer")
	}
}

func TestWritePlainFailedWriter(t *testing.T) {
	runner := newTestRunner(&itest.FWriter{})

	if err := runner.writePlain("hello"); err == nil {
		t.Error("expected error from failing writer")
	}
}

func TestRequireSpotifyWithoutService(t *testing.T) {
	runner := newTestRunner(io.Discard)

	if err := runner.requireSpotify(t.Context()); err == nil {
		t.Error("expected error without a configured service")
	}
}

func TestWrapAPIErrorAddsUserMessage(t *testing.T) {
	runner := newTestRunner(io.Discard)

	wrapped := runner.wrapAPIError(&services.APIError{Status: 429})
	if wrapped == nil {
		t.Fatal("wrapAPIError() = nil")
	}
	if !strings.Contains(wrapped.Error(), services.UserMessage(services.CategoryRateLimit)) {
		t.Errorf("wrapped = %q", wrapped.Error())
	}

	var apiErr *services.APIError
	if !errors.As(wrapped, &apiErr) {
		t.Error("original APIError no longer reachable")
	}

	if runner.wrapAPIError(nil) != nil {
		t.Error("wrapAPIError(nil) should be nil")
	}
}

func TestPrintDedupReport(t *testing.T) {
	var buf bytes.Buffer
	runner := newTestRunner(&buf)

	report := &tasks.DedupReport{
		PlaylistName:    "Road Trip",
		TotalTracks:     20,
		DuplicatesFound: 2,
		PlannedRemovals: 3,
		TracksRemoved:   3,
		FinalSnapshot:   "snap-9",
		FinalTrackCount: 17,
		Groups: []tasks.DuplicateGroup{
			{Name: "Song", Artist: "Band", Count: 2, Positions: []int{1, 7}},
		},
	}

	if err := runner.printDedupReport(report); err != nil {
		t.Fatalf("printDedupReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Road Trip", "Band - Song", "Removed 3 of 3", "Final track count: 17"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDedupReportDryRun(t *testing.T) {
	var buf bytes.Buffer
	runner := newTestRunner(&buf)

	report := &tasks.DedupReport{
		PlaylistName:    "Road Trip",
		TotalTracks:     20,
		DuplicatesFound: 1,
		PlannedRemovals: 2,
		DryRun:          true,
		Groups: []tasks.DuplicateGroup{
			{Name: "Song", Artist: "Band", Count: 3, Positions: []int{0, 4, 9}},
		},
	}

	if err := runner.printDedupReport(report); err != nil {
		t.Fatalf("printDedupReport() error = %v", err)
	}

	if !strings.Contains(buf.String(), "2 tracks would be removed") {
		t.Errorf("dry run output: %s", buf.String())
	}
}

func TestPrintSortReportConflict(t *testing.T) {
	var buf bytes.Buffer
	runner := newTestRunner(&buf)

	report := &tasks.SortReport{
		PlaylistName: "Road Trip",
		TotalTracks:  20,
		MovesPlanned: 5,
		MovesApplied: 2,
		Conflict:     true,
		SkippedOps:   3,
	}

	if err := runner.printSortReport(report); err != nil {
		t.Fatalf("printSortReport() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "modified externally") || !strings.Contains(out, "3 operations were skipped") {
		t.Errorf("conflict output: %s", out)
	}
}
