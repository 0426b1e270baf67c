package engine

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/nibzard/stq/internal/logging"
	"github.com/nibzard/stq/internal/task"
	"github.com/nibzard/stq/internal/taskfile"
)

func newEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	e, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e, path
}

func mustDequeue(t *testing.T, e *Engine) string {
	t.Helper()
	got, err := e.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	return got.Content()
}

func loadFile(t *testing.T, path string) []task.Record {
	t.Helper()
	doc, err := taskfile.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return doc.Tasks
}

func TestEnqueueDequeue(t *testing.T) {
	tests := []struct {
		content  string
		priority bool
	}{
		{"a", false},
		{"a", true},
		{"with spaces and 記号", false},
	}
	for _, tt := range tests {
		e, _ := newEngine(t)
		e.Enqueue(tt.content, tt.priority)
		if !e.CanDequeue() {
			t.Fatalf("CanDequeue false after Enqueue(%q, %v)", tt.content, tt.priority)
		}
		if got := mustDequeue(t, e); got != tt.content {
			t.Errorf("Dequeue: got %q, want %q", got, tt.content)
		}
	}
}

func TestFIFOOrder(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("task1", false)
	e.Enqueue("task2", false)

	if got := mustDequeue(t, e); got != "task1" {
		t.Errorf("first: got %q, want task1", got)
	}
	if got := mustDequeue(t, e); got != "task2" {
		t.Errorf("second: got %q, want task2", got)
	}
	if len(e.Pending()) != 1 || e.Pending()[0].Content != "task1" {
		t.Errorf("task1 should be back in the queue, pending %+v", e.Pending())
	}
	e.MarkDone()
	if got := mustDequeue(t, e); got != "task1" {
		t.Errorf("third: got %q, want task1", got)
	}
	e.MarkDone()
	if e.CanDequeue() {
		t.Error("queue should be empty")
	}
}

func TestPriorityPreempts(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("low", false)
	e.Enqueue("high", true)

	if got := mustDequeue(t, e); got != "high" {
		t.Errorf("first: got %q, want high", got)
	}
	e.MarkDone()
	if got := mustDequeue(t, e); got != "low" {
		t.Errorf("second: got %q, want low", got)
	}
}

func TestEnqueueEmptyIsNoop(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("", false)
	e.Enqueue("", true)
	if e.CanDequeue() {
		t.Error("CanDequeue true after enqueueing empty content")
	}
}

func TestDequeueEmpty(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Dequeue()
	if !errors.Is(err, task.ErrQueueEmpty) {
		t.Errorf("got %v, want ErrQueueEmpty", err)
	}
	if _, ok := e.Current(); ok {
		t.Error("Current set after failed Dequeue")
	}
}

func TestDequeueRequeuesCurrent(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("A", false)
	e.Enqueue("B", false)

	if got := mustDequeue(t, e); got != "A" {
		t.Fatalf("first: got %q, want A", got)
	}
	if got := mustDequeue(t, e); got != "B" {
		t.Fatalf("second: got %q, want B", got)
	}
	cur, ok := e.Current()
	if !ok || cur.Content() != "B" {
		t.Errorf("Current: got %q (ok=%v), want B", cur.Content(), ok)
	}
	if got := mustDequeue(t, e); got != "A" {
		t.Errorf("third: got %q, want A", got)
	}
}

func TestRequeuedPriorityGoesToPriorityBucket(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("p1", true)
	e.Enqueue("s1", false)

	mustDequeue(t, e) // p1
	// p1 returns to the priority bucket and wins again over s1.
	if got := mustDequeue(t, e); got != "p1" {
		t.Errorf("got %q, want p1", got)
	}
}

func TestMarkDoneRemovesPermanently(t *testing.T) {
	e, path := newEngine(t)
	e.Enqueue("finished", false)
	e.Enqueue("later", false)

	mustDequeue(t, e)
	e.MarkDone()
	if _, ok := e.Current(); ok {
		t.Error("Current still set after MarkDone")
	}
	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "finished") {
		t.Errorf("done task persisted: %s", data)
	}
	if !strings.Contains(string(data), "later") {
		t.Errorf("pending task missing: %s", data)
	}
}

func TestMarkDoneWithoutCurrent(t *testing.T) {
	e, _ := newEngine(t)
	e.Enqueue("a", false)
	e.MarkDone()
	if !e.CanDequeue() {
		t.Error("MarkDone without a current task removed a queued task")
	}
}

func TestSaveAndReload(t *testing.T) {
	e, path := newEngine(t)
	e.Enqueue("a", true)
	e.Enqueue("b", false)
	e.Enqueue("c", true)

	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	want := []task.Record{
		{Content: "a", Priority: true},
		{Content: "c", Priority: true},
		{Content: "b", Priority: false},
	}
	if got := loadFile(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("file: got %+v, want %+v", got, want)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	var order []string
	for reloaded.CanDequeue() {
		order = append(order, mustDequeue(t, reloaded))
		reloaded.MarkDone()
	}
	if !reflect.DeepEqual(order, []string{"a", "c", "b"}) {
		t.Errorf("reloaded order: got %v, want [a c b]", order)
	}
}

func TestSaveKeepsQueue(t *testing.T) {
	e, path := newEngine(t)
	e.Enqueue("a", false)
	e.Enqueue("b", false)

	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first, _ := os.ReadFile(path)
	if len(e.Pending()) != 2 {
		t.Errorf("Save drained the queue: pending %d", len(e.Pending()))
	}
	if err := e.Save(); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Errorf("repeated Save differs:\n%s\n%s", first, second)
	}
}

func TestSaveRequeuesCurrent(t *testing.T) {
	e, path := newEngine(t)
	e.Enqueue("A", false)
	e.Enqueue("B", false)
	mustDequeue(t, e)

	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	want := []task.Record{{Content: "B"}, {Content: "A"}}
	if got := loadFile(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("file: got %+v, want %+v", got, want)
	}
	if _, ok := e.Current(); ok {
		t.Error("Current still set after Save")
	}
}

func TestSaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "tasks.json")
	e, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.Enqueue("a", false)

	err = e.Save()
	if err == nil {
		t.Fatal("expected Save error")
	}
	if !strings.Contains(err.Error(), "save tasks") {
		t.Errorf("unexpected error: %v", err)
	}
	if !e.CanDequeue() {
		t.Error("failed Save lost the queue")
	}
}

func TestStartup(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		e, _ := newEngine(t)
		if e.CanDequeue() {
			t.Error("expected empty queue")
		}
	})

	t.Run("loads existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasks.json")
		data := `{"tasks":[{"content":"x","priority":false},{"content":"y","priority":true}]}`
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		e, err := New(path)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if got := mustDequeue(t, e); got != "y" {
			t.Errorf("got %q, want y", got)
		}
	})

	bad := []struct {
		name string
		data string
	}{
		{"malformed json", `{"tasks": [`},
		{"wrong type", `{"tasks":[{"content":"a","priority":"yes"}]}`},
		{"missing tasks key", `{"items":[]}`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := New(path)
			var se *StartupError
			if !errors.As(err, &se) {
				t.Fatalf("got %v, want *StartupError", err)
			}
			if se.Path != path {
				t.Errorf("Path: got %q, want %q", se.Path, path)
			}
		})
	}

	t.Run("validation cause is reachable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasks.json")
		os.WriteFile(path, []byte(`{"tasks":[{"content":"a","priority":"yes"}]}`), 0644)
		_, err := New(path)
		var ve *taskfile.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("got %v, want wrapped *taskfile.ValidationError", err)
		}
		if ve.Path != "tasks[0].priority" {
			t.Errorf("Path: got %q", ve.Path)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Getuid() == 0 {
			t.Skip("permission bits not enforced")
		}
		path := filepath.Join(t.TempDir(), "tasks.json")
		os.WriteFile(path, []byte(`{"tasks":[]}`), 0000)
		_, err := New(path)
		var se *StartupError
		if !errors.As(err, &se) {
			t.Fatalf("got %v, want *StartupError", err)
		}
	})

	t.Run("directory instead of file", func(t *testing.T) {
		dir := t.TempDir()
		_, err := New(dir)
		var se *StartupError
		if !errors.As(err, &se) {
			t.Fatalf("got %v, want *StartupError", err)
		}
	})
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)
	os.Chdir(dir)

	e, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.Path() != taskfile.DefaultPath {
		t.Errorf("Path: got %q, want %q", e.Path(), taskfile.DefaultPath)
	}
}

type recordingJournal struct {
	events []logging.Event
	err    error
}

func (r *recordingJournal) Log(e logging.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestJournal(t *testing.T) {
	j := &recordingJournal{}
	path := filepath.Join(t.TempDir(), "tasks.json")
	e, err := New(path, WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}

	e.Enqueue("a", true)
	e.Enqueue("", false)
	mustDequeue(t, e)
	e.MarkDone()
	if err := e.Save(); err != nil {
		t.Fatal(err)
	}

	var actions []string
	for _, ev := range j.events {
		actions = append(actions, ev.Action)
	}
	want := []string{logging.ActionEnqueue, logging.ActionDequeue, logging.ActionDone, logging.ActionSave}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("actions: got %v, want %v", actions, want)
	}
	if j.events[0].Content != "a" || !j.events[0].Priority || j.events[0].Pending != 1 {
		t.Errorf("enqueue event: got %+v", j.events[0])
	}
}

func TestJournalErrorDoesNotFailOperations(t *testing.T) {
	j := &recordingJournal{err: errors.New("disk full")}
	var logs bytes.Buffer
	e, err := New(filepath.Join(t.TempDir(), "tasks.json"),
		WithJournal(j),
		WithLogger(logging.NewConsoleFromConfig(&logs, "debug", "text", false, false)),
	)
	if err != nil {
		t.Fatal(err)
	}
	e.Enqueue("a", false)
	if !e.CanDequeue() {
		t.Error("journal error blocked Enqueue")
	}
	if !strings.Contains(logs.String(), "disk full") {
		t.Errorf("journal error not logged: %q", logs.String())
	}
}
