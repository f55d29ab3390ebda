package horizon

import "errors"

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("horizon: resource not found")

// Asset types as reported in balances and operations
const (
	AssetTypeNative        = "native"
	AssetTypeLiquidityPool = "liquidity_pool_shares"
)

// Operation types the adapter turns into payment records
const (
	OpPayment                  = "payment"
	OpCreateAccount            = "create_account"
	OpPathPaymentStrictReceive = "path_payment_strict_receive"
	OpPathPaymentStrictSend    = "path_payment_strict_send"
)

// AccountResponse is the subset of GET /accounts/{id} the adapter needs
type AccountResponse struct {
	AccountID string        `json:"account_id"`
	Sequence  string        `json:"sequence"`
	Balances  []BalanceLine `json:"balances"`
}

// BalanceLine is one entry of an account's balances array
type BalanceLine struct {
	Balance     string `json:"balance"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
}

// PaymentsPage is the response of GET /accounts/{id}/payments
type PaymentsPage struct {
	Embedded struct {
		Records []PaymentOperation `json:"records"`
	} `json:"_embedded"`
}

// PaymentOperation is a payment-like operation record. Fields that do not
// apply to the operation type are empty.
type PaymentOperation struct {
	ID                    string `json:"id"`
	Type                  string `json:"type"`
	CreatedAt             string `json:"created_at"`
	TransactionSuccessful bool   `json:"transaction_successful"`

	// payment and path payments
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Amount      string `json:"amount,omitempty"`
	AssetType   string `json:"asset_type,omitempty"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`

	// create_account
	Funder          string `json:"funder,omitempty"`
	Account         string `json:"account,omitempty"`
	StartingBalance string `json:"starting_balance,omitempty"`
}

// ProblemResponse is Horizon's error body
type ProblemResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}
