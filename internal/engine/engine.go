// Package engine coordinates the task queue, the checked-out task, and the
// tasks file. It is the whole surface the user interfaces talk to.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/nibzard/stq/internal/logging"
	"github.com/nibzard/stq/internal/task"
	"github.com/nibzard/stq/internal/taskfile"
)

// StartupError reports a tasks file that exists but could not be loaded.
type StartupError struct {
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("load tasks file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the console logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithJournal sets the activity journal.
func WithJournal(j logging.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

// Engine owns the pending queue and at most one current task. The current
// task is never in the queue at the same time.
//
// Engine is not safe for concurrent use; callers dispatch operations from a
// single goroutine.
type Engine struct {
	path    string
	queue   *task.Queue
	current *task.Task
	logger  *log.Logger
	journal logging.Journal
}

// New creates an engine backed by the tasks file at path. A missing file
// starts an empty queue; a file that cannot be read, parsed, or validated
// returns a *StartupError.
func New(path string, opts ...Option) (*Engine, error) {
	if path == "" {
		path = taskfile.DefaultPath
	}
	e := &Engine{
		path:    path,
		queue:   task.NewQueue(),
		logger:  logging.NewDiscard(),
		journal: logging.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug("No tasks file, starting empty", "path", e.path)
			return nil
		}
		return &StartupError{Path: e.path, Err: err}
	}

	if err := taskfile.ValidateBytes(data).Err(); err != nil {
		return &StartupError{Path: e.path, Err: err}
	}
	doc, err := taskfile.Parse(data)
	if err != nil {
		return &StartupError{Path: e.path, Err: err}
	}

	e.queue.LoadRecords(doc.Tasks)
	e.logger.Info("Loaded tasks", "path", e.path, "pending", e.queue.Len())
	e.record(logging.Event{Action: logging.ActionLoad, Pending: e.queue.Len()})
	return nil
}

// Path returns the tasks file path.
func (e *Engine) Path() string {
	return e.path
}

// Enqueue adds a task. Empty content is ignored.
func (e *Engine) Enqueue(content string, priority bool) {
	if content == "" {
		return
	}
	e.queue.Enqueue(task.New(content, priority))
	e.logger.Debug("Enqueued task", "content", content, "priority", priority)
	e.record(logging.Event{
		Action:   logging.ActionEnqueue,
		Content:  content,
		Priority: priority,
		Pending:  e.queue.Len(),
	})
}

// CanDequeue reports whether the queue has a pending task.
func (e *Engine) CanDequeue() bool {
	return !e.queue.Empty()
}

// Dequeue returns the current task to the back of its bucket, then checks
// out the next task and returns it. It returns task.ErrQueueEmpty when there
// is nothing to check out.
func (e *Engine) Dequeue() (task.Task, error) {
	e.requeueCurrent()

	next, err := e.queue.Dequeue()
	if err != nil {
		return task.Task{}, err
	}
	e.current = &next
	e.logger.Debug("Dequeued task", "content", next.Content(), "priority", next.Priority())
	e.record(logging.Event{
		Action:   logging.ActionDequeue,
		Content:  next.Content(),
		Priority: next.Priority(),
		Pending:  e.queue.Len(),
	})
	return next, nil
}

// MarkDone drops the current task. It is the only way a task leaves the
// system for good.
func (e *Engine) MarkDone() {
	if e.current == nil {
		return
	}
	done := *e.current
	e.current = nil
	e.logger.Debug("Marked task done", "content", done.Content())
	e.record(logging.Event{
		Action:   logging.ActionDone,
		Content:  done.Content(),
		Priority: done.Priority(),
		Pending:  e.queue.Len(),
	})
}

// Current returns the checked-out task, if any.
func (e *Engine) Current() (task.Task, bool) {
	if e.current == nil {
		return task.Task{}, false
	}
	return *e.current, true
}

// Peek returns the task the next Dequeue would check out, ignoring the
// current task.
func (e *Engine) Peek() (task.Task, bool) {
	return e.queue.Peek()
}

// Pending returns the queued tasks in dequeue order. The current task is not
// included.
func (e *Engine) Pending() []task.Record {
	return e.queue.Records()
}

// Save returns the current task to the queue and writes the queue to the
// tasks file. The in-memory queue is left intact.
func (e *Engine) Save() error {
	e.requeueCurrent()

	doc := taskfile.FromQueue(e.queue)
	if err := doc.Save(e.path); err != nil {
		e.logger.Error("Saving tasks failed", "path", e.path, "err", err)
		e.record(logging.Event{Action: logging.ActionSave, Pending: e.queue.Len(), Error: err.Error()})
		return fmt.Errorf("save tasks: %w", err)
	}

	e.logger.Info("Saved tasks", "path", e.path, "pending", len(doc.Tasks))
	e.record(logging.Event{Action: logging.ActionSave, Pending: len(doc.Tasks)})
	return nil
}

func (e *Engine) requeueCurrent() {
	if e.current == nil {
		return
	}
	e.queue.Enqueue(*e.current)
	e.current = nil
}

// record writes to the journal. Failures are logged, not returned.
func (e *Engine) record(event logging.Event) {
	if err := e.journal.Log(event); err != nil {
		e.logger.Warn("Journal write failed", "err", err)
	}
}
