package kyc

import "context"

// Store persists the whole KYC set. Reads return the full set and writes
// overwrite it.
type Store interface {
	LoadKyc(ctx context.Context) ([]Entry, error)
	SaveKyc(ctx context.Context, entries []Entry) error
}
