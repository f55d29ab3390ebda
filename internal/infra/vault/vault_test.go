package vault_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletsync/internal/infra/vault"
	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
)

const testAccount = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

// cheap parameters keep the tests fast
var testParams = vault.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func TestVault_EmptySlotsLoadEmpty(t *testing.T) {
	v := vault.New(testAccount, vault.NewMemoryBlobStore(), "passphrase", testParams, nil)

	contacts, err := v.LoadContacts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)

	entries, err := v.LoadKyc(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestVault_ContactsRoundTrip(t *testing.T) {
	blobs := vault.NewMemoryBlobStore()
	v := vault.New(testAccount, blobs, "passphrase", testParams, nil)
	ctx := context.Background()

	alice := contact.New("Alice", "GALICE")
	require.NoError(t, v.SaveContacts(ctx, []contact.Contact{alice}))

	got, err := v.LoadContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []contact.Contact{alice}, got)

	// stored bytes do not reveal the plaintext
	raw, err := blobs.Get(ctx, v.Key("contacts"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("Alice")))
}

func TestVault_KycRoundTripAcrossInstances(t *testing.T) {
	blobs := vault.NewMemoryBlobStore()
	ctx := context.Background()

	first := vault.New(testAccount, blobs, "passphrase", testParams, nil)
	entries := []kyc.Entry{{FieldID: "email", Value: "ada@example.com"}}
	require.NoError(t, first.SaveKyc(ctx, entries))

	second := vault.New(testAccount, blobs, "passphrase", testParams, nil)
	got, err := second.LoadKyc(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	// the reopened vault keeps writing under the same salt
	require.NoError(t, second.SaveKyc(ctx, append(got, kyc.Entry{FieldID: "phone", Value: "555"})))
	got, err = first.LoadKyc(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestVault_WrongPassphrase(t *testing.T) {
	blobs := vault.NewMemoryBlobStore()
	ctx := context.Background()

	require.NoError(t, vault.New(testAccount, blobs, "right", testParams, nil).
		SaveContacts(ctx, []contact.Contact{contact.New("Alice", "GALICE")}))

	_, err := vault.New(testAccount, blobs, "wrong", testParams, nil).LoadContacts(ctx)
	assert.ErrorIs(t, err, vault.ErrDecrypt)
}

func TestVault_BlobsAreBoundToTheirSlot(t *testing.T) {
	blobs := vault.NewMemoryBlobStore()
	ctx := context.Background()
	v := vault.New(testAccount, blobs, "passphrase", testParams, nil)

	require.NoError(t, v.SaveKyc(ctx, []kyc.Entry{{FieldID: "email", Value: "x"}}))

	// copy the kyc blob over the contacts slot
	raw, err := blobs.Get(ctx, v.Key("kyc"))
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, v.Key("contacts"), raw))

	_, err = v.LoadContacts(ctx)
	assert.ErrorIs(t, err, vault.ErrDecrypt)
}

func TestVault_CorruptedBlob(t *testing.T) {
	blobs := vault.NewMemoryBlobStore()
	ctx := context.Background()
	v := vault.New(testAccount, blobs, "passphrase", testParams, nil)

	require.NoError(t, blobs.Put(ctx, v.Key("contacts"), []byte{1, 2, 3}))

	_, err := v.LoadContacts(ctx)
	assert.ErrorIs(t, err, vault.ErrDecrypt)
}

func TestMemoryBlobStore_NotFound(t *testing.T) {
	_, err := vault.NewMemoryBlobStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, vault.ErrBlobNotFound)
}
