package crew

import "fmt"

// TaskState is a task's lifecycle state. Transitions are one-way:
// pending -> running -> {succeeded, failed}. A terminal task never
// re-enters running; retry policy belongs to whoever wraps the executor.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Task is one unit of work in a workflow.
type Task struct {
	// ID names the task. Unique within a workflow.
	ID string

	// Agent is the persona executing the task.
	Agent Agent

	// Description is the work instruction given to the model.
	Description string

	// Query, when non-empty, is sent to the retrieval capability before
	// generation and the retrieved context is included in the prompt.
	Query string

	// ExpectedOutput describes the deliverable, steering the model.
	ExpectedOutput string

	// DependsOn lists task IDs whose output this task reads. Only those
	// outputs are visible to it.
	DependsOn []string

	state TaskState
}

// State returns the task's current state.
func (t *Task) State() TaskState {
	return t.state
}

// transition moves the task to next, rejecting illegal moves.
func (t *Task) transition(next TaskState) error {
	valid := false
	switch t.state {
	case TaskPending:
		valid = next == TaskRunning
	case TaskRunning:
		valid = next == TaskSucceeded || next == TaskFailed
	}
	if !valid {
		return fmt.Errorf("task %q: illegal transition %v -> %v", t.ID, t.state, next)
	}
	t.state = next
	return nil
}
