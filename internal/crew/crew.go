package crew

import (
	"context"
	"fmt"
	"log/slog"
)

// Crew bundles an executor with a task-set builder and produces reports.
type Crew struct {
	executor *Executor
	logger   *slog.Logger
}

// New creates a Crew.
func New(generator Generator, retriever Retriever, logger *slog.Logger) *Crew {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crew{
		executor: NewExecutor(generator, retriever, logger),
		logger:   logger,
	}
}

// AnalysisTasks builds the standard three-stage analysis workflow for a
// research topic: research, analysis, report. The report task is terminal
// and its output is the workflow deliverable.
func AnalysisTasks(topic string) []*Task {
	return []*Task{
		{
			ID:    "research",
			Agent: ResearchAnalyst(),
			Description: fmt.Sprintf("Research the following topic using the knowledge base:\n%s\n\n"+
				"Find all relevant information, key facts, and important details.", topic),
			Query:          topic,
			ExpectedOutput: "Comprehensive research findings with key information",
		},
		{
			ID:    "analysis",
			Agent: DataAnalyst(),
			Description: "Analyze the research findings to identify:\n" +
				"- Key patterns and trends\n" +
				"- Important insights\n" +
				"- Potential implications\n" +
				"- Areas requiring attention\n\n" +
				"Use the knowledge base to support your analysis.",
			Query:          topic,
			ExpectedOutput: "Detailed analysis with insights and patterns",
			DependsOn:      []string{"research"},
		},
		{
			ID:    "report",
			Agent: ReportWriter(),
			Description: "Create a comprehensive report that includes:\n" +
				"1. Executive Summary\n" +
				"2. Key Findings\n" +
				"3. Detailed Analysis\n" +
				"4. Conclusions and Recommendations\n\n" +
				"The report should be well-structured and professional.",
			ExpectedOutput: "Professional report in markdown with all sections",
			DependsOn:      []string{"research", "analysis"},
		},
	}
}

// Analyze runs the standard analysis workflow for a topic and returns the
// final report.
func (c *Crew) Analyze(ctx context.Context, topic string) (string, error) {
	run := NewRun(AnalysisTasks(topic))
	return c.Execute(ctx, run)
}

// Execute runs a workflow and returns the output of its terminal task. A
// failed terminal task is an error; failed intermediate tasks surface only
// through the report content.
func (c *Crew) Execute(ctx context.Context, run *WorkflowRun) (string, error) {
	if len(run.Tasks) == 0 {
		return "", fmt.Errorf("workflow has no tasks")
	}

	if err := c.executor.Run(ctx, run); err != nil {
		return "", err
	}

	terminal := terminalTask(run.Tasks)
	out, ok := run.Output(terminal.ID)
	if !ok {
		return "", fmt.Errorf("terminal task %q produced no output", terminal.ID)
	}
	if out.Failed {
		return "", fmt.Errorf("terminal task %q failed: %w", terminal.ID, out.Err)
	}

	c.logger.Info("workflow complete", "workflow", run.ID, "report_length", len(out.Text))
	return out.Text, nil
}

// terminalTask picks the deliverable task: the last task no other task
// depends on.
func terminalTask(tasks []*Task) *Task {
	depended := make(map[string]bool)
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			depended[dep] = true
		}
	}
	terminal := tasks[len(tasks)-1]
	for _, t := range tasks {
		if !depended[t.ID] {
			terminal = t
		}
	}
	return terminal
}
