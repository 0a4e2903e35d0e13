package domain

import "fmt"

// InvalidInputError indicates a bad request shape (empty text, oversized
// batch). Always a caller error; never touches the registry or runtime.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// UnknownModelError indicates a model identifier with no registered
// descriptor. The load path is never invoked for unknown identifiers.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q", e.ModelID)
}

// ModelLoadError indicates the runtime failed to materialize a model after
// the registry's single retry.
type ModelLoadError struct {
	ModelID string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %q: %v", e.ModelID, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError indicates a prediction call failed after the analyzer's
// single retry.
type InferenceError struct {
	ModelID string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %q: %v", e.ModelID, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// UnsupportedLabelError indicates a model produced a raw label outside its
// descriptor's declared label space. This is a descriptor/model mismatch - a
// configuration defect, never retried.
type UnsupportedLabelError struct {
	ModelID  string
	RawLabel string
}

func (e *UnsupportedLabelError) Error() string {
	return fmt.Sprintf("model %q produced undeclared label %q", e.ModelID, e.RawLabel)
}

// PersistenceError indicates a history store read or write failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TimeoutError indicates an analysis exceeded its deadline. Only the
// offending request is cancelled; waiters on a shared model load are not
// affected.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("analysis deadline exceeded: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
