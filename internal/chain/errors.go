package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemote marks any failed contract read or write: transport errors, reverted
	// calls and malformed outputs.
	ErrRemote         = errors.New("remote call failed")
	ErrReverted       = errors.New("transaction reverted")
	ErrMalformed      = errors.New("malformed contract output")
	ErrInvalidAddress = errors.New("invalid address")
	ErrNotConnected   = errors.New("wallet not connected")
)

// CallError identifies the contract function that failed.
type CallError struct {
	Contract string
	Method   string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Contract, e.Method, e.Err)
}

func (e *CallError) Unwrap() []error {
	return []error{ErrRemote, e.Err}
}

func callError(contract, method string, err error) error {
	return &CallError{Contract: contract, Method: method, Err: err}
}

// Reason returns the innermost remote message, suitable for showing verbatim.
func Reason(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Err.Error()
	}
	return err.Error()
}
