package cmd

import (
	"strings"
	"testing"

	"github.com/kbcrew/kbcrew/internal/bridge"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"search", "ask", "run", "index", "mcp", "migrate", "version"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestSearchOptions(t *testing.T) {
	opts, err := searchOptions(7, []string{"source_type=web", "lang=en"})
	if err != nil {
		t.Fatalf("searchOptions failed: %v", err)
	}
	// topK plus two filters.
	if len(opts) != 3 {
		t.Errorf("expected 3 options, got %d", len(opts))
	}

	opts, err = searchOptions(0, nil)
	if err != nil {
		t.Fatalf("searchOptions failed: %v", err)
	}
	if len(opts) != 0 {
		t.Errorf("zero topK and no filters should yield no options, got %d", len(opts))
	}
}

func TestSearchOptionsInvalidFilter(t *testing.T) {
	for _, filter := range []string{"nokey", "=value", ""} {
		if _, err := searchOptions(0, []string{filter}); err == nil {
			t.Errorf("filter %q should be rejected", filter)
		}
	}
}

func TestPreviewText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short text unchanged", "hello world", 20, "hello world"},
		{"whitespace collapsed", "hello\n\t world", 20, "hello world"},
		{"long text truncated", strings.Repeat("a", 30), 10, strings.Repeat("a", 10) + "..."},
		{"unicode not split", strings.Repeat("測", 30), 10, strings.Repeat("測", 10) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := previewText(tt.text, tt.limit); got != tt.want {
				t.Errorf("previewText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAskPrompt(t *testing.T) {
	withChunks := bridge.Result{
		Chunks: []bridge.Chunk{
			{DocID: "doc-1", Text: "useful fact", Score: 0.9,
				Metadata: map[string]string{"source": "/kb/a.txt"}},
		},
	}

	prompt := askPrompt("what happened", withChunks)
	if !strings.Contains(prompt, "what happened") {
		t.Error("question missing from prompt")
	}
	if !strings.Contains(prompt, "useful fact") || !strings.Contains(prompt, "/kb/a.txt") {
		t.Errorf("context missing from prompt:\n%s", prompt)
	}

	degraded := askPrompt("q", bridge.Result{Degraded: true})
	if !strings.Contains(degraded, "knowledge base unavailable") {
		t.Errorf("degraded note missing:\n%s", degraded)
	}

	empty := askPrompt("q", bridge.Result{})
	if !strings.Contains(empty, "no matching documents") {
		t.Errorf("empty note missing:\n%s", empty)
	}
}

func TestRenderMarkdownFallback(t *testing.T) {
	// Rendering must always return something containing the source text,
	// styled or not.
	out := renderMarkdown("# Title\n\nbody text")
	if !strings.Contains(out, "body text") {
		t.Errorf("rendered output lost content:\n%s", out)
	}
}
