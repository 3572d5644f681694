// Package tracking remembers which input documents a batch run has already
// handled so later runs skip them.
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// PositionRecord is the outcome for one position found in a document.
type PositionRecord struct {
	ExperienceID string   `json:"experience_id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Extracted    int      `json:"achievements_extracted,omitempty"`
	New          int      `json:"merged_new,omitempty"`
	Duplicates   int      `json:"duplicates_skipped,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	RawResponse  string   `json:"raw_response,omitempty"`
}

// Record is the outcome for one document.
type Record struct {
	Filename    string    `json:"filename"`
	Status      string    `json:"status"`
	RunID       string    `json:"run_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	Error       string    `json:"error,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RawResponse string    `json:"raw_response,omitempty"`

	PositionsProcessed     int `json:"positions_processed"`
	SuccessfulExtractions  int `json:"successful_extractions"`
	FailedExtractions      int `json:"failed_extractions"`
	TotalNewAchievements   int `json:"total_new_achievements"`
	TotalDuplicatesSkipped int `json:"total_duplicates_skipped"`

	Positions []PositionRecord `json:"extraction_results,omitempty"`
}

// History is the content of the processed-files tracking file.
type History struct {
	Processed []Record   `json:"processed"`
	Failed    []Record   `json:"failed"`
	LastRun   *time.Time `json:"last_run"`
}

// Load reads the tracking file. A missing or empty file is an empty history.
func Load(path string) (*History, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty(), nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return empty(), nil
	}

	h := empty()
	if err := json.NewDecoder(file).Decode(h); err != nil {
		return nil, fmt.Errorf("decoding tracking file %s: %w", path, err)
	}
	if h.Processed == nil {
		h.Processed = []Record{}
	}
	if h.Failed == nil {
		h.Failed = []Record{}
	}
	return h, nil
}

func empty() *History {
	return &History{Processed: []Record{}, Failed: []Record{}}
}

// Add files r under processed or failed. Skipped documents are not kept so
// the next run tries them again. It reports whether r was recorded.
func (h *History) Add(r Record) bool {
	switch r.Status {
	case StatusSuccess:
		h.Processed = append(h.Processed, r)
	case StatusFailed:
		h.Failed = append(h.Failed, r)
	default:
		return false
	}
	return true
}

// IsProcessed reports whether name was processed successfully before. Failed
// documents are retried.
func (h *History) IsProcessed(name string) bool {
	for _, r := range h.Processed {
		if r.Filename == name {
			return true
		}
	}
	return false
}

// Save stamps LastRun and writes the history to path.
func (h *History) Save(path string, now time.Time) error {
	h.LastRun = &now

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return err
	}
	return nil
}
