package relayer

import (
	"errors"
	"fmt"
)

// Driver-side failure classes. Consensus rejections come typed from the
// consensus package; everything here is infrastructure: fetch and prover
// errors are retried with backoff, submission errors are surfaced to the
// operator because retrying blindly can race another prover.

// FetchError is a transient beacon-data failure.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("fetch %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProverExecutionError is an environment-level proving failure; the same
// input is valid to retry.
type ProverExecutionError struct {
	Err error
}

func (e *ProverExecutionError) Error() string {
	return fmt.Sprintf("prover execution failed: %v", e.Err)
}
func (e *ProverExecutionError) Unwrap() error { return e.Err }

// SubmissionError is a rejection by the submission collaborator.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submission failed: %v", e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is an infrastructure fault worth
// retrying with the same input after backoff.
func IsRetryable(err error) bool {
	var fe *FetchError
	var pe *ProverExecutionError
	return errors.As(err, &fe) || errors.As(err, &pe)
}
