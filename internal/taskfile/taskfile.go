package taskfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nibzard/stq/internal/task"
)

// DefaultPath is the tasks file used when none is configured.
const DefaultPath = "tasks.json"

// Document is the on-disk representation of the queue.
type Document struct {
	Tasks []task.Record `json:"tasks"`
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // location in the document, e.g. tasks[0].priority
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid  bool
	Errors []error
}

// Err folds the result into a single error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return fmt.Errorf("%d validation errors, first: %w", len(r.Errors), r.Errors[0])
}

// FromQueue captures the pending tasks of q in dequeue order. The queue is
// left unchanged.
func FromQueue(q *task.Queue) *Document {
	return &Document{Tasks: q.Records()}
}

// Queue returns a new queue populated from the document.
func (d *Document) Queue() *task.Queue {
	q := task.NewQueue()
	q.LoadRecords(d.Tasks)
	return q
}

// Load reads and parses a tasks file from path. A missing file is reported
// with an error wrapping fs.ErrNotExist. Load does not validate; see
// ValidateBytes.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a tasks document. A document without a tasks array decodes
// to an empty one.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse tasks file: %w", err)
	}
	if d.Tasks == nil {
		d.Tasks = []task.Record{}
	}
	return &d, nil
}

// Marshal encodes the document with 2-space indentation and a trailing
// newline.
func (d *Document) Marshal() ([]byte, error) {
	tasks := d.Tasks
	if tasks == nil {
		tasks = []task.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Tasks: tasks}); err != nil {
		return nil, fmt.Errorf("marshal tasks file: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to path, replacing any existing file.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write tasks file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("write tasks file: %w", err)
	}

	return nil
}

// Validate checks the document against the embedded schema.
func (d *Document) Validate() *ValidationResult {
	data, err := d.Marshal()
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []error{&ValidationError{Err: err}},
		}
	}
	return ValidateBytes(data)
}

// ValidateBytes checks raw tasks file contents against the embedded schema.
// Malformed JSON is reported as a single validation error.
func ValidateBytes(data []byte) *ValidationResult {
	result := &ValidationResult{
		Valid:  true,
		Errors: make([]error, 0),
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("invalid JSON: %w", err),
		})
		return result
	}

	schema, err := compiled()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
		return result
	}

	if err := schema.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}

	return result
}
