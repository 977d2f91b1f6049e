package crew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kbcrew/kbcrew/internal/bridge"
)

// Generator is the inference capability tasks reason with. *llm.Client
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Retriever is the retrieval capability injected into task execution.
// Bridge.Search bound to a topK satisfies it via RetrieverFrom.
type Retriever func(ctx context.Context, query string) (bridge.Result, error)

// RetrieverFrom binds a bridge into a Retriever capability.
func RetrieverFrom(b *bridge.Bridge, opts ...bridge.SearchOption) Retriever {
	return func(ctx context.Context, query string) (bridge.Result, error) {
		return b.Search(ctx, query, opts...)
	}
}

// Executor runs a workflow's tasks sequentially in dependency order.
type Executor struct {
	generator Generator
	retriever Retriever
	logger    *slog.Logger
}

// NewExecutor creates an Executor. retriever may be nil, in which case
// tasks with a Query get no retrieved context and are told so.
func NewExecutor(generator Generator, retriever Retriever, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		generator: generator,
		retriever: retriever,
		logger:    logger,
	}
}

// Run executes every task of the run in dependency order. Task failure is
// recorded and surfaced to dependents, not propagated as a Run error; Run
// itself fails only on an invalid task graph or cancellation.
func (e *Executor) Run(ctx context.Context, run *WorkflowRun) error {
	order, err := topoSort(run.Tasks)
	if err != nil {
		return err
	}

	for _, task := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("workflow %s canceled: %w", run.ID, err)
		}
		e.runTask(ctx, run, task)
	}
	return nil
}

// runTask executes one task and records its output in the run context.
func (e *Executor) runTask(ctx context.Context, run *WorkflowRun, task *Task) {
	if err := task.transition(TaskRunning); err != nil {
		// Graph was validated, so this indicates task reuse across runs.
		e.logger.Error("task state corrupted", "task", task.ID, "error", err)
		run.setOutput(TaskOutput{TaskID: task.ID, Failed: true, Err: err})
		return
	}

	start := time.Now()
	e.logger.Info("task started", "workflow", run.ID, "task", task.ID, "role", task.Agent.Role)

	prompt := e.buildPrompt(ctx, run, task)
	text, err := e.generator.Generate(ctx, task.Agent.systemPrompt(), prompt)
	if err != nil {
		_ = task.transition(TaskFailed)
		e.logger.Warn("task failed", "workflow", run.ID, "task", task.ID,
			"elapsed", time.Since(start), "error", err)
		run.setOutput(TaskOutput{TaskID: task.ID, Failed: true, Err: err})
		return
	}

	_ = task.transition(TaskSucceeded)
	e.logger.Info("task succeeded", "workflow", run.ID, "task", task.ID,
		"elapsed", time.Since(start), "output_length", len(text))
	run.setOutput(TaskOutput{TaskID: task.ID, Text: text})
}

// buildPrompt assembles the task instruction, retrieved context, and
// visible upstream outputs.
func (e *Executor) buildPrompt(ctx context.Context, run *WorkflowRun, task *Task) string {
	var sb strings.Builder
	sb.WriteString(task.Description)
	if task.ExpectedOutput != "" {
		sb.WriteString("\n\nExpected output: ")
		sb.WriteString(task.ExpectedOutput)
	}

	if task.Query != "" {
		sb.WriteString("\n\n## Retrieved knowledge base context\n\n")
		sb.WriteString(e.retrieveContext(ctx, task))
	}

	deps := run.dependencyOutputs(task)
	if len(deps) > 0 {
		sb.WriteString("\n\n## Results from earlier tasks\n")
		for _, dep := range deps {
			if dep.Failed {
				fmt.Fprintf(&sb, "\n### %s (FAILED upstream)\nThis task failed; treat its area as uncovered and note the gap.\n", dep.TaskID)
				continue
			}
			fmt.Fprintf(&sb, "\n### %s\n%s\n", dep.TaskID, dep.Text)
		}
	}

	return sb.String()
}

// retrieveContext runs the task's query through the retrieval capability
// and formats the chunks with attribution.
func (e *Executor) retrieveContext(ctx context.Context, task *Task) string {
	if e.retriever == nil {
		return "(no retrieval capability configured; proceed from general knowledge and say so)"
	}

	result, err := e.retriever(ctx, task.Query)
	if err != nil {
		// Input errors or cancellation. The bridge never errors on
		// upstream failure.
		e.logger.Warn("retrieval rejected", "task", task.ID, "error", err)
		return "(retrieval rejected the query; proceed without knowledge base context)"
	}
	if result.Degraded {
		return "(knowledge base unavailable; proceed with general knowledge and flag the gap)"
	}
	if len(result.Chunks) == 0 {
		return "(no matching documents in the knowledge base)"
	}

	return FormatChunks(result)
}

// FormatChunks renders bridge chunks with source attribution for
// inclusion in a prompt.
func FormatChunks(result bridge.Result) string {
	var sb strings.Builder
	for i, chunk := range result.Chunks {
		source := chunk.Metadata["source"]
		if source == "" {
			source = chunk.DocID
		}
		fmt.Fprintf(&sb, "[%d] (source: %s, score: %.3f)\n%s\n\n", i+1, source, chunk.Score, chunk.Text)
	}
	if result.Truncated {
		sb.WriteString("(more matches exist beyond the returned set)\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// topoSort orders tasks so every task follows its dependencies. Fails on
// unknown dependencies and cycles.
func topoSort(tasks []*Task) ([]*Task, error) {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task with empty ID")
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task ID %q", t.ID)
		}
		byID[t.ID] = t
	}

	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
			indegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	// Seed with declaration order for deterministic output.
	var queue []*Task
	for _, t := range tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t)
		}
	}

	ordered := make([]*Task, 0, len(tasks))
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		ordered = append(ordered, t)

		for _, depID := range dependents[t.ID] {
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, byID[depID])
			}
		}
	}

	if len(ordered) != len(tasks) {
		return nil, fmt.Errorf("task graph has a dependency cycle")
	}
	return ordered, nil
}
