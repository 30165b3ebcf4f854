package agent

import "fmt"

// EmptyResponseError reports a generation role that produced no sentence.
type EmptyResponseError struct {
	Role Role
}

// Error implements the error interface.
func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("agent role %q returned an empty sentence", e.Role)
}

// MalformedResponseError reports a response that does not match the
// role's output schema.
type MalformedResponseError struct {
	Role   Role
	Reason string
	Raw    string
	Cause  error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent role %q returned malformed output: %s: %v", e.Role, e.Reason, e.Cause)
	}
	return fmt.Sprintf("agent role %q returned malformed output: %s", e.Role, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// UnknownEvaluatorError reports an evaluator name with no registered schema.
type UnknownEvaluatorError struct {
	Evaluator string
}

// Error implements the error interface.
func (e *UnknownEvaluatorError) Error() string {
	return fmt.Sprintf("unknown evaluator %q", e.Evaluator)
}
