package cache

import (
	"fmt"
	"time"
)

// TTLConfig is the single source of cache lifetimes handed to every manager
type TTLConfig struct {
	// Existence is how long an account-exists answer (true or false) is trusted
	Existence time.Duration

	// Assets is the lifetime of fetched balances
	Assets time.Duration

	// Payments is the lifetime of fetched payment history
	Payments time.Duration

	// Contacts is the lifetime of the loaded contact book
	Contacts time.Duration

	// KYC is the lifetime of the loaded KYC fields
	KYC time.Duration
}

// DefaultTTLConfig returns the default lifetimes
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Existence: 60 * time.Second,
		Assets:    30 * time.Second,
		Payments:  20 * time.Second,
		Contacts:  300 * time.Second,
		KYC:       180 * time.Second,
	}
}

// Validate rejects non-positive lifetimes
func (c TTLConfig) Validate() error {
	for name, ttl := range map[string]time.Duration{
		"existence": c.Existence,
		"assets":    c.Assets,
		"payments":  c.Payments,
		"contacts":  c.Contacts,
		"kyc":       c.KYC,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s ttl must be positive, got %s", name, ttl)
		}
	}
	return nil
}
