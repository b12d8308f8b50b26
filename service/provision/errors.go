package provision

import (
	"errors"
	"fmt"

	"github.com/brojonat/solwallet/service/artifact"
	"github.com/brojonat/solwallet/service/keys"
	"github.com/brojonat/solwallet/service/solana"
)

// Kind classifies a failed run for the operator and the exit code.
type Kind int

const (
	KindInput Kind = iota + 1
	KindPrecondition
	KindIO
	KindNetwork
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindPrecondition:
		return "precondition"
	case KindIO:
		return "io"
	case KindNetwork:
		return "network"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the single error type Run returns. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindCancelled {
		return "Operation cancelled."
	}
	return fmt.Sprintf("Error %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or zero when err did not come from Run.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// classify wraps err from step op with the kind its cause implies.
// fallback applies when the cause carries no more specific meaning.
func classify(op string, err error, fallback Kind) error {
	kind := fallback

	var (
		loadErr      *keys.LoadError
		insufficient *solana.InsufficientBalanceError
		mismatch     *solana.DecimalsMismatchError
	)
	switch {
	case errors.Is(err, artifact.ErrCancelled):
		kind = KindCancelled
	case errors.As(err, &loadErr):
		kind = KindInput
	case errors.As(err, &insufficient), errors.As(err, &mismatch):
		kind = KindPrecondition
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
