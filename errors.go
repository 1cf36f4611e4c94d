package ledgerfeed

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNoProfile          = errors.New("no profile for the connected account")
	ErrSessionClosed      = errors.New("session closed")
	ErrInvalidCall        = errors.New("invalid entry point call")
	ErrNoWallet           = errors.New("no wallet connected")
)

// WriteError is the terminal error of a failed submission: the wallet
// rejected or could not submit the call, finality could not be observed, or
// execution aborted on the ledger.
type WriteError struct {
	EntryPoint string
	Digest     string
	Err        error
}

func (e *WriteError) Error() string {
	if e.Digest == "" {
		return fmt.Sprintf("%s: %v", e.EntryPoint, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.EntryPoint, e.Digest, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ExecutionError is an abort reported in the transaction effects.
type ExecutionError struct {
	Status string
}

func (e *ExecutionError) Error() string {
	return "execution failed: " + e.Status
}
