package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// FeedbackEntry is one saved submission.
type FeedbackEntry struct {
	Text      string `json:"text"`
	Contact   string `json:"contact"`
	Timestamp string `json:"timestamp"`
}

// FeedbackFile persists submissions as a single growing JSON array.
// Appends are serialized in-process and rewrite the file whole, so the
// sink suits low-volume product feedback, not high-frequency telemetry.
type FeedbackFile struct {
	mu   sync.Mutex
	path string
}

// NewFeedbackFile creates a sink at path. The file is created on first
// append.
func NewFeedbackFile(path string) *FeedbackFile {
	return &FeedbackFile{path: path}
}

// Append loads the current array, adds the entry, and writes the file
// back. A missing file starts a fresh array; an unreadable or corrupt one
// is an error so submissions are never silently dropped.
func (f *FeedbackFile) Append(entry FeedbackEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := []FeedbackEntry{}
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("feedback file: %w", err)
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("feedback file: %w", err)
		}
	}

	entries = append(entries, entry)
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("feedback file: %w", err)
	}
	if err := os.WriteFile(f.path, out, 0o644); err != nil {
		return fmt.Errorf("feedback file: %w", err)
	}
	return nil
}
