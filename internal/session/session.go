// Package session persists lightweight UI state between CLI runs:
// the last search criteria and a short list of recently viewed files.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"astrocat/internal/catalog"
)

// MaxRecent bounds the recently-viewed list.
const MaxRecent = 10

// Session is the persisted state. The file format is versioned by its
// name (session_v1.json); incompatible future formats get a new name
// rather than a migration.
type Session struct {
	LastSearch *catalog.SearchCriteria `json:"last_search,omitempty"`
	Recent     []string                `json:"recent,omitempty"`
}

// Load reads the session from path. A missing or unreadable session
// file yields an empty session: session state is a convenience, never
// a reason to fail a command.
func Load(path string) *Session {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Session{}
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return &Session{}
	}
	if len(s.Recent) > MaxRecent {
		s.Recent = s.Recent[:MaxRecent]
	}
	return &s
}

// Save writes the session to path atomically.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// RememberSearch records the criteria of the most recent search.
func (s *Session) RememberSearch(c catalog.SearchCriteria) {
	if c.IsEmpty() {
		return
	}
	s.LastSearch = &c
}

// Touch moves a file ID to the front of the recently-viewed list,
// evicting the oldest entry when full.
func (s *Session) Touch(fileID string) {
	recent := make([]string, 0, len(s.Recent)+1)
	recent = append(recent, fileID)
	for _, id := range s.Recent {
		if id != fileID {
			recent = append(recent, id)
		}
	}
	if len(recent) > MaxRecent {
		recent = recent[:MaxRecent]
	}
	s.Recent = recent
}
