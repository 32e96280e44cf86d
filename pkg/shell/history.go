package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

// History keeps the most recent input lines. It implements term.History.
//
// Lines starting with a space are recalled during the session but never
// saved, so that a secret can be typed without reaching the history file.
type History struct {
	entries []string // oldest first
	max     int
}

// NewHistory creates a History holding at most max entries.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{max: max}
}

// Add appends an entry, dropping the oldest one when full. Blank entries and
// repeats of the newest entry are ignored.
func (h *History) Add(entry string) {
	if strings.TrimSpace(entry) == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return
	}
	h.entries = append(h.entries, entry)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// At returns an entry, index 0 being the most recent.
func (h *History) At(idx int) string {
	return h.entries[len(h.entries)-1-idx]
}

// Load appends the entries of a history file. A missing file is not an error.
func (h *History) Load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		h.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading history %s: %w", path, err)
	}
	logger.Info("history loaded", zap.String("path", path), zap.Int("entries", h.Len()))
	return nil
}

// Save writes the persistable entries to path, one per line.
func (h *History) Save(path string) error {
	var sb strings.Builder
	n := 0
	for _, entry := range h.entries {
		if strings.HasPrefix(entry, " ") {
			continue
		}
		sb.WriteString(entry)
		sb.WriteByte('\n')
		n++
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	logger.Info("history saved", zap.String("path", path), zap.Int("entries", n))
	return nil
}
