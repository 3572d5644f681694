package tracking

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingAndEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	h, err := Load(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Processed) != 0 || len(h.Failed) != 0 || h.LastRun != nil {
		t.Fatalf("expected empty history, got %+v", h)
	}

	path := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("unexpected error for empty file: %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAddAndSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "processed_files.json")
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	h := empty()
	if !h.Add(Record{Filename: "a.pdf", Status: StatusSuccess, RunID: "run-1", ProcessedAt: at, TotalNewAchievements: 3}) {
		t.Fatal("success should be recorded")
	}
	if !h.Add(Record{Filename: "b.txt", Status: StatusFailed, Error: "read error"}) {
		t.Fatal("failure should be recorded")
	}
	if h.Add(Record{Filename: "c.docx", Status: StatusSkipped}) {
		t.Fatal("skipped documents are not recorded")
	}

	if err := h.Save(path, at); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Processed) != 1 || len(loaded.Failed) != 1 {
		t.Fatalf("unexpected history: %+v", loaded)
	}
	if got := loaded.Processed[0]; got.RunID != "run-1" || got.TotalNewAchievements != 3 || !got.ProcessedAt.Equal(at) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if loaded.LastRun == nil || !loaded.LastRun.Equal(at) {
		t.Fatalf("unexpected last run: %v", loaded.LastRun)
	}

	if !loaded.IsProcessed("a.pdf") {
		t.Fatal("a.pdf should be processed")
	}
	if loaded.IsProcessed("b.txt") {
		t.Fatal("failed documents are retried")
	}

	// A shorter history fully replaces the longer one on disk.
	shorter := empty()
	shorter.Add(Record{Filename: "a.pdf", Status: StatusSuccess})
	if err := shorter.Save(path, at); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("load after rewrite: %v", err)
	}
	if len(reloaded.Processed) != 1 || len(reloaded.Failed) != 0 {
		t.Fatalf("unexpected history after rewrite: %+v", reloaded)
	}
}
