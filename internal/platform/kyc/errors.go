package kyc

import "errors"

var (
	ErrMissingFieldID = errors.New("kyc field id is required")
	ErrEntryNotFound  = errors.New("kyc field not found")
)
