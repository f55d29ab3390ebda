// Package kyc manages the encrypted know-your-customer fields of an account.
package kyc

import "strings"

// Entry is one KYC field. A set holds at most one entry per FieldID.
type Entry struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// NewEntry trims the field id
func NewEntry(fieldID, value string) Entry {
	return Entry{FieldID: strings.TrimSpace(fieldID), Value: value}
}

// Validate checks the field id
func (e Entry) Validate() error {
	if e.FieldID == "" {
		return ErrMissingFieldID
	}
	return nil
}
