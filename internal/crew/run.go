package crew

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskOutput is what one finished task contributes to the workflow
// scratch context.
type TaskOutput struct {
	TaskID string

	// Text is the task's produced output. Empty when the task failed.
	Text string

	// Failed marks a failed upstream. Dependents see the flag instead of
	// silently receiving empty data.
	Failed bool

	// Err holds the failure reason for reporting.
	Err error
}

// WorkflowRun is one end-to-end execution of a task set. Tasks write their
// output to the run's scratch context; a task may only read outputs of
// tasks it depends on.
type WorkflowRun struct {
	ID        string
	Tasks     []*Task
	StartedAt time.Time

	mu      sync.Mutex
	outputs map[string]TaskOutput
}

// NewRun creates a WorkflowRun over the given tasks.
func NewRun(tasks []*Task) *WorkflowRun {
	return &WorkflowRun{
		ID:        uuid.NewString(),
		Tasks:     tasks,
		StartedAt: time.Now(),
		outputs:   make(map[string]TaskOutput),
	}
}

// setOutput records a task's output. Each key is written exactly once:
// tasks are terminal after finishing and never re-enter running.
func (r *WorkflowRun) setOutput(out TaskOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[out.TaskID] = out
}

// dependencyOutputs returns the outputs visible to a task: exactly those
// of its declared dependencies, in declaration order.
func (r *WorkflowRun) dependencyOutputs(t *Task) []TaskOutput {
	r.mu.Lock()
	defer r.mu.Unlock()

	outs := make([]TaskOutput, 0, len(t.DependsOn))
	for _, dep := range t.DependsOn {
		if out, ok := r.outputs[dep]; ok {
			outs = append(outs, out)
		}
	}
	return outs
}

// Output returns a task's recorded output.
func (r *WorkflowRun) Output(taskID string) (TaskOutput, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.outputs[taskID]
	return out, ok
}
