package task

import "errors"

// ErrQueueEmpty is returned by Dequeue when both buckets are empty.
var ErrQueueEmpty = errors.New("task queue is empty")

// Queue holds pending tasks in two FIFO buckets. Dequeue always drains the
// priority bucket before the standard one.
//
// The zero value is an empty queue ready to use. Queue is not safe for
// concurrent use.
type Queue struct {
	priority bucket
	standard bucket
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends t to the back of the bucket selected by its priority flag.
func (q *Queue) Enqueue(t Task) {
	if t.Priority() {
		q.priority.push(t)
		return
	}
	q.standard.push(t)
}

// Dequeue removes and returns the oldest priority task, or the oldest
// standard task when no priority task is pending.
func (q *Queue) Dequeue() (Task, error) {
	if t, ok := q.priority.pop(); ok {
		return t, nil
	}
	if t, ok := q.standard.pop(); ok {
		return t, nil
	}
	return Task{}, ErrQueueEmpty
}

// Peek returns the task Dequeue would return, without removing it.
func (q *Queue) Peek() (Task, bool) {
	if t, ok := q.priority.front(); ok {
		return t, true
	}
	return q.standard.front()
}

// Empty reports whether both buckets are empty.
func (q *Queue) Empty() bool {
	return q.priority.len() == 0 && q.standard.len() == 0
}

// Len returns the number of pending tasks across both buckets.
func (q *Queue) Len() int {
	return q.priority.len() + q.standard.len()
}

// Records returns the pending tasks in dequeue order without modifying the
// queue.
func (q *Queue) Records() []Record {
	records := make([]Record, 0, q.Len())
	for _, t := range q.priority.items() {
		records = append(records, t.Record())
	}
	for _, t := range q.standard.items() {
		records = append(records, t.Record())
	}
	return records
}

// Drain dequeues every task and returns their records in dequeue order.
// The queue is empty afterwards.
func (q *Queue) Drain() []Record {
	records := make([]Record, 0, q.Len())
	for !q.Empty() {
		t, err := q.Dequeue()
		if err != nil {
			break
		}
		records = append(records, t.Record())
	}
	return records
}

// LoadRecords enqueues a task for each record, in input order.
func (q *Queue) LoadRecords(records []Record) {
	for _, r := range records {
		q.Enqueue(FromRecord(r))
	}
}

// bucket is a FIFO slice with a moving head. The backing array is reclaimed
// once the head passes half its length.
type bucket struct {
	tasks []Task
	head  int
}

func (b *bucket) push(t Task) {
	b.tasks = append(b.tasks, t)
}

func (b *bucket) pop() (Task, bool) {
	if b.head >= len(b.tasks) {
		return Task{}, false
	}
	t := b.tasks[b.head]
	b.tasks[b.head] = Task{}
	b.head++
	if b.head == len(b.tasks) {
		b.tasks = b.tasks[:0]
		b.head = 0
	} else if b.head > len(b.tasks)/2 {
		b.tasks = append([]Task(nil), b.tasks[b.head:]...)
		b.head = 0
	}
	return t, true
}

func (b *bucket) front() (Task, bool) {
	if b.head >= len(b.tasks) {
		return Task{}, false
	}
	return b.tasks[b.head], true
}

func (b *bucket) len() int {
	return len(b.tasks) - b.head
}

func (b *bucket) items() []Task {
	return b.tasks[b.head:]
}
