// Package task defines the task value and the two-bucket FIFO queue.
package task

// Task is a unit of work: free-text content and a priority flag.
// A Task is immutable once constructed.
type Task struct {
	content  string
	priority bool
}

// Record is the serialized form of a Task.
type Record struct {
	Content  string `json:"content"`
	Priority bool   `json:"priority"`
}

// New returns a task with the given content and priority. Content is not
// validated here; empty strings are accepted.
func New(content string, priority bool) Task {
	return Task{content: content, priority: priority}
}

// FromRecord builds a task from its serialized form.
func FromRecord(r Record) Task {
	return New(r.Content, r.Priority)
}

// Content returns the task text.
func (t Task) Content() string {
	return t.content
}

// Priority reports whether the task goes to the priority bucket.
func (t Task) Priority() bool {
	return t.priority
}

// Record returns the serialized form of t.
func (t Task) Record() Record {
	return Record{Content: t.content, Priority: t.priority}
}
