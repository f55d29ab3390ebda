// Package contact manages the encrypted address book of an account.
package contact

import (
	"strings"

	"github.com/google/uuid"
)

// Contact is a named counterparty address
type Contact struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	AccountAddress string    `json:"account_address"`
}

// New creates a contact with a fresh id
func New(name, address string) Contact {
	return Contact{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(name),
		AccountAddress: strings.TrimSpace(address),
	}
}

// Validate checks the required fields
func (c Contact) Validate() error {
	if c.Name == "" {
		return ErrMissingName
	}
	if c.AccountAddress == "" {
		return ErrMissingAddress
	}
	return nil
}
