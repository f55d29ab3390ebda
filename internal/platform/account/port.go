package account

import "context"

// Client is the remote ledger as seen by the managers
type Client interface {
	// AccountExists reports whether the account is funded on the ledger
	AccountExists(ctx context.Context, address string) (bool, error)

	// GetBalances returns every asset balance of the account
	GetBalances(ctx context.Context, address string) ([]AssetBalance, error)

	// GetPayments returns the recent payment history, newest first
	GetPayments(ctx context.Context, address string) ([]PaymentRecord, error)
}
