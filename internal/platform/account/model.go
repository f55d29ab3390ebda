// Package account defines the ledger-facing types shared by the asset and
// payment managers, and the account-existence cache that gates their fetches.
package account

import (
	"math/big"
	"time"

	"github.com/kislikjeka/walletsync/pkg/money"
)

// NativeAssetID identifies the ledger's native asset
const NativeAssetID = "native"

// AssetBalance is one asset held by the account
type AssetBalance struct {
	AssetID string   // "native" or CODE:ISSUER
	Code    string   // XLM, USDC
	Issuer  string   // empty for the native asset
	Balance *big.Int // in stroops
}

// IsNative reports whether the balance is of the native asset
func (b AssetBalance) IsNative() bool {
	return b.AssetID == NativeAssetID
}

// FormattedBalance renders the balance in whole units
func (b AssetBalance) FormattedBalance() string {
	return money.FromStroops(b.Balance)
}

// Direction tells whether the account sent or received a payment
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// PaymentRecord is one entry of the account's payment history
type PaymentRecord struct {
	ID                      string
	Asset                   string   // asset id, same format as AssetBalance.AssetID
	Amount                  *big.Int // in stroops
	Direction               Direction
	CounterpartyAddress     string
	CounterpartyContactName string // best-effort join with the contact book, empty on miss
	CreatedAt               time.Time
}

// FormattedAmount renders the amount in whole units
func (p PaymentRecord) FormattedAmount() string {
	return money.FromStroops(p.Amount)
}
