package consensus

import (
	"errors"
	"fmt"
)

// Kind classifies a deterministic rejection of an untrusted update. These are
// never retried with the same input; infrastructure faults live elsewhere.
type Kind int

const (
	StaleUpdate Kind = iota + 1
	PeriodGap
	InvalidMerkleProof
	InsufficientSignatures
	InvalidSignature
	InvalidExecutionProof
)

func (k Kind) String() string {
	switch k {
	case StaleUpdate:
		return "stale update"
	case PeriodGap:
		return "period gap"
	case InvalidMerkleProof:
		return "invalid merkle proof"
	case InsufficientSignatures:
		return "insufficient signatures"
	case InvalidSignature:
		return "invalid signature"
	case InvalidExecutionProof:
		return "invalid execution proof"
	default:
		return fmt.Sprintf("consensus error %d", int(k))
	}
}

// Error is a rejection with the field or proof that failed attached, so
// callers and tests can assert the exact reason.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func errf(kind Kind, field, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a consensus rejection of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsConsensusError reports whether err is any deterministic rejection.
func IsConsensusError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
