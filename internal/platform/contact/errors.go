package contact

import "errors"

var (
	// Validation errors
	ErrMissingName      = errors.New("contact name is required")
	ErrMissingAddress   = errors.New("contact account address is required")
	ErrDuplicateAddress = errors.New("a contact with this account address already exists")

	ErrContactNotFound = errors.New("contact not found")
)
