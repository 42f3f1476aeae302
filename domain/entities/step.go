package entities

import "fmt"

// StepResult is the outcome of one atomic browser interaction
type StepResult struct {
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	NotFound bool              `json:"not_found,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// StepOK returns a successful result
func StepOK() StepResult {
	return StepResult{Success: true}
}

// StepFailed returns a failed result with a diagnostic message
func StepFailed(format string, args ...any) StepResult {
	return StepResult{Error: fmt.Sprintf(format, args...)}
}

// With attaches an extra value to the result
func (r StepResult) With(key, value string) StepResult {
	if r.Data == nil {
		r.Data = make(map[string]string)
	}
	r.Data[key] = value
	return r
}

// Get returns an extra value or ""
func (r StepResult) Get(key string) string {
	return r.Data[key]
}

// Err converts a failed result into a CommandError for the given stage.
// It returns nil for successful results.
func (r StepResult) Err(stage string) error {
	if r.Success {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "step failed"
	}
	if r.NotFound {
		return NotFound("%s: %s", stage, msg)
	}
	return &CommandError{Code: CodeStepFailed, Message: fmt.Sprintf("%s: %s", stage, msg)}
}
