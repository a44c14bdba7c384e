package eventer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrPayloadRequired   = errors.New("event requires a payload")
	ErrUnexpectedPayload = errors.New("event does not carry a payload")
)

// ContractError is raised, or logged, when an event is dispatched in a way its
// declared Contract does not allow.
type ContractError struct {
	Event    string
	Contract Contract
	err      error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation on event %q (%s): %s", e.Event, e.Contract, e.err)
}

func (e *ContractError) Unwrap() error { return e.err }

func newContractError(event any, contract Contract, err error) *ContractError {
	return &ContractError{
		Event:    fmt.Sprint(event),
		Contract: contract,
		err:      err,
	}
}
