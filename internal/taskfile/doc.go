// Package taskfile reads, validates, and writes the persisted task queue.
//
// The tasks file (tasks.json by default) holds the pending queue in dequeue
// order, priority tasks first:
//
//	{
//	  "tasks": [
//	    {"content": "fix the build", "priority": true},
//	    {"content": "water the plants", "priority": false}
//	  ]
//	}
//
// # Validation
//
// Documents are checked against an embedded JSON Schema (draft 2020-12):
//   - "tasks" is required and must be an array
//   - each task requires "content" (string) and "priority" (boolean)
//   - tasks may not carry other properties
//
// # File Format
//
// When writing tasks files, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Non-ASCII and HTML characters written verbatim
//   - A temporary sibling file renamed over the target
package taskfile
