package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"giveaway-bot/internal/twitter"
)

// Marker persists the ID of the newest processed post to a flat file so a
// restart resumes from roughly where it stopped.
type Marker struct {
	path string
	last string
}

// NewMarker returns a Marker backed by path. Call Load to read the stored ID.
func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

// Load reads the stored ID. A missing file yields an empty ID.
func (m *Marker) Load() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read marker %s: %w", m.path, err)
	}

	id := strings.TrimSpace(string(data))
	if id != "" && !isNumeric(id) {
		return "", fmt.Errorf("marker %s holds invalid post id %q", m.path, id)
	}
	m.last = id
	return id, nil
}

// Last returns the in-memory ID without touching the file.
func (m *Marker) Last() string {
	return m.last
}

// Advance records id if it is newer than the current one and writes it to
// disk. The in-memory value is updated even if the write fails.
func (m *Marker) Advance(id string) error {
	if id == "" || twitter.CompareIDs(id, m.last) <= 0 {
		return nil
	}
	m.last = id

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create marker directory: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id), 0644); err != nil {
		return fmt.Errorf("failed to write marker %s: %w", m.path, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace marker %s: %w", m.path, err)
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
