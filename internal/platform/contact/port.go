package contact

import "context"

// Store persists the whole contact book. Reads return the full set and writes
// overwrite it.
type Store interface {
	LoadContacts(ctx context.Context) ([]Contact, error)
	SaveContacts(ctx context.Context, contacts []Contact) error
}
