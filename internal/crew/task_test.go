package crew

import "testing"

func TestTaskStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskState
		to      TaskState
		allowed bool
	}{
		{name: "pending to running", from: TaskPending, to: TaskRunning, allowed: true},
		{name: "running to succeeded", from: TaskRunning, to: TaskSucceeded, allowed: true},
		{name: "running to failed", from: TaskRunning, to: TaskFailed, allowed: true},
		{name: "pending to succeeded", from: TaskPending, to: TaskSucceeded, allowed: false},
		{name: "pending to failed", from: TaskPending, to: TaskFailed, allowed: false},
		{name: "succeeded to running", from: TaskSucceeded, to: TaskRunning, allowed: false},
		{name: "failed to running", from: TaskFailed, to: TaskRunning, allowed: false},
		{name: "succeeded to failed", from: TaskSucceeded, to: TaskFailed, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{ID: "t", state: tt.from}
			err := task.transition(tt.to)
			if tt.allowed && err != nil {
				t.Errorf("transition %v -> %v should be allowed: %v", tt.from, tt.to, err)
			}
			if !tt.allowed && err == nil {
				t.Errorf("transition %v -> %v should be rejected", tt.from, tt.to)
			}
		})
	}
}

func TestTaskStateString(t *testing.T) {
	tests := []struct {
		state TaskState
		want  string
	}{
		{TaskPending, "pending"},
		{TaskRunning, "running"},
		{TaskSucceeded, "succeeded"},
		{TaskFailed, "failed"},
		{TaskState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTaskStateTerminal(t *testing.T) {
	if TaskPending.Terminal() || TaskRunning.Terminal() {
		t.Error("pending and running are not terminal")
	}
	if !TaskSucceeded.Terminal() || !TaskFailed.Terminal() {
		t.Error("succeeded and failed are terminal")
	}
}
