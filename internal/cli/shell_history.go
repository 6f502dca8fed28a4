package cli

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const maxHistoryLines = 500

// defaultHistoryPath is ~/.kaizen/shell_history, or "" when there is no
// home directory.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kaizen", "shell_history")
}

// shellHistory is the line history with an up/down cursor. Persistence is
// best-effort; an empty path keeps it in memory.
type shellHistory struct {
	path  string
	lines []string
	pos   int
}

func newShellHistory(path string) *shellHistory {
	h := &shellHistory{path: path}
	if path != "" {
		h.lines = readHistory(path)
	}
	h.pos = len(h.lines)
	return h
}

func readHistory(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > maxHistoryLines {
		lines = lines[len(lines)-maxHistoryLines:]
	}
	return lines
}

// add records line and resets the cursor past the newest entry.
func (h *shellHistory) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	h.lines = append(h.lines, line)
	if len(h.lines) > maxHistoryLines {
		h.lines = h.lines[len(h.lines)-maxHistoryLines:]
	}
	h.pos = len(h.lines)
	h.persist(line)
}

func (h *shellHistory) persist(line string) {
	if h.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}

// prev moves to the previous entry. ok is false at the oldest one.
func (h *shellHistory) prev() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.lines[h.pos], true
}

// next moves toward the newest entry and returns "" once past it.
func (h *shellHistory) next() string {
	if h.pos < len(h.lines)-1 {
		h.pos++
		return h.lines[h.pos]
	}
	h.pos = len(h.lines)
	return ""
}
