// Package vault persists an account's contact book and KYC fields as sealed
// blobs. Each collection is JSON-encoded as a whole and encrypted before it
// reaches the BlobStore.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

const (
	contactsSlot = "contacts"
	kycSlot      = "kyc"
)

// Vault is the secure store of one account
type Vault struct {
	account string
	blobs   BlobStore
	sealer  *sealer
	logger  *logger.Logger
}

var (
	_ contact.Store = (*Vault)(nil)
	_ kyc.Store     = (*Vault)(nil)
)

// New creates the vault of account over blobs
func New(account string, blobs BlobStore, passphrase string, params KDFParams, log *logger.Logger) *Vault {
	if log == nil {
		log = logger.Discard()
	}
	return &Vault{
		account: account,
		blobs:   blobs,
		sealer:  newSealer(passphrase, params),
		logger:  log.WithComponent("vault").WithField("account", account),
	}
}

// Key returns the blob key of a slot
func (v *Vault) Key(slot string) string {
	return v.account + "/" + slot
}

func (v *Vault) LoadContacts(ctx context.Context) ([]contact.Contact, error) {
	var contacts []contact.Contact
	if err := v.read(ctx, contactsSlot, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []contact.Contact{}
	}
	return contacts, nil
}

func (v *Vault) SaveContacts(ctx context.Context, contacts []contact.Contact) error {
	if contacts == nil {
		contacts = []contact.Contact{}
	}
	return v.write(ctx, contactsSlot, contacts)
}

func (v *Vault) LoadKyc(ctx context.Context) ([]kyc.Entry, error) {
	var entries []kyc.Entry
	if err := v.read(ctx, kycSlot, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []kyc.Entry{}
	}
	return entries, nil
}

func (v *Vault) SaveKyc(ctx context.Context, entries []kyc.Entry) error {
	if entries == nil {
		entries = []kyc.Entry{}
	}
	return v.write(ctx, kycSlot, entries)
}

// read leaves out untouched when the slot was never written
func (v *Vault) read(ctx context.Context, slot string, out any) error {
	key := v.Key(slot)

	blob, err := v.blobs.Get(ctx, key)
	if errors.Is(err, ErrBlobNotFound) {
		v.logger.Debug("vault slot empty", "slot", slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", slot, err)
	}

	v.sealer.adopt(blob)
	plaintext, err := v.sealer.open(blob, []byte(key))
	if err != nil {
		v.logger.Error("failed to open vault slot", "slot", slot, "error", err)
		return fmt.Errorf("failed to open %s: %w", slot, err)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", slot, err)
	}
	return nil
}

func (v *Vault) write(ctx context.Context, slot string, in any) error {
	key := v.Key(slot)

	plaintext, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", slot, err)
	}

	blob, err := v.sealer.seal(plaintext, []byte(key))
	if err != nil {
		return err
	}

	if err := v.blobs.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("failed to write %s: %w", slot, err)
	}
	v.logger.Debug("vault slot written", "slot", slot, "bytes", len(blob))
	return nil
}
