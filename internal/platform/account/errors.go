package account

import (
	"errors"
	"fmt"

	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
)

// ErrAccountNotFound is published when the account does not exist on the
// ledger (typically unfunded). It is a state, not a fault.
var ErrAccountNotFound = errors.New("account not found on ledger")

// FetchError is published when a ledger call for a resource fails
type FetchError struct {
	Resource string // assets or payments
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Resource, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Resource, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps a ledger failure for resource
func NewFetchError(resource string, err error) *FetchError {
	return &FetchError{Resource: resource, Message: "ledger request failed", Err: err}
}

// Outcome classifies a fetch error for telemetry
func Outcome(err error) string {
	if errors.Is(err, ErrAccountNotFound) {
		return telemetry.OutcomeNotFound
	}
	return telemetry.OutcomeError
}
