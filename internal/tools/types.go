package tools

// Status classifies a tool result for the calling model.
type Status string

const (
	// StatusSuccess marks a result whose Data is usable.
	StatusSuccess Status = "success"
	// StatusError marks a result whose Error explains the failure.
	StatusError Status = "error"
)

// Error codes returned in Result.Error.
const (
	// ErrCodeValidation marks rejected input. The model should fix the
	// arguments and retry.
	ErrCodeValidation = "validation"
	// ErrCodeExecution marks an operational failure. Retrying with the
	// same arguments may succeed later.
	ErrCodeExecution = "execution"
)

// Error is the structured failure block of a Result.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the uniform envelope every tool handler returns. Operational
// failures live in Error with StatusError; the handler still returns a
// nil Go error so the model sees the failure instead of the framework
// swallowing it.
type Result struct {
	Status Status         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *Error         `json:"error,omitempty"`
}
