// Package logging provides the console logger and the per-session activity
// journal.
package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Journal actions.
const (
	ActionLoad    = "load"
	ActionEnqueue = "enqueue"
	ActionDequeue = "dequeue"
	ActionDone    = "done"
	ActionSave    = "save"
)

// Event is one line of the activity journal.
type Event struct {
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	Content  string    `json:"content,omitempty"`
	Priority bool      `json:"priority,omitempty"`
	Pending  int       `json:"pending"`
	Error    string    `json:"error,omitempty"`
}

// Journal receives engine activity.
type Journal interface {
	Log(Event) error
}

// Discard is a Journal that drops every event.
var Discard Journal = discardJournal{}

type discardJournal struct{}

func (discardJournal) Log(Event) error { return nil }

// RunLogger writes one JSONL journal file per session.
type RunLogger struct {
	Dir     string
	RunID   string
	LogPath string
	file    *os.File
	enc     *json.Encoder
	now     func() time.Time
}

// NewRunLogger creates the per-project journal directory under baseDir and
// opens a fresh JSONL file in it.
func NewRunLogger(baseDir, workDir string) (*RunLogger, error) {
	logDir, err := FindLogDir(baseDir, workDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	id := runID()
	logPath := filepath.Join(logDir, id+".jsonl")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &RunLogger{
		Dir:     logDir,
		RunID:   id,
		LogPath: logPath,
		file:    file,
		enc:     json.NewEncoder(file),
		now:     time.Now,
	}, nil
}

// Log appends event to the journal. A zero Time is filled in with the
// current time.
func (r *RunLogger) Log(event Event) error {
	if r == nil || r.enc == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = r.now().UTC()
	}
	if err := r.enc.Encode(event); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (r *RunLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// FindLogDir returns the journal directory for workDir without creating it.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(resolvedWorkDir, baseDir)
	}
	return filepath.Join(filepath.Clean(baseDir), projectSlug(resolvedWorkDir)), nil
}

func projectSlug(projectRoot string) string {
	return fmt.Sprintf("%s-%s", slugify(filepath.Base(projectRoot)), hashPath(projectRoot))
}

func slugify(input string) string {
	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_.")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}
