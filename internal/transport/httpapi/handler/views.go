package handler

import (
	"time"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
	"github.com/kislikjeka/walletsync/internal/platform/state"
)

// ResourceView renders a DataState. Data is always present, empty when no
// load ever succeeded.
type ResourceView[T any] struct {
	Status string `json:"status"`
	Data   []T    `json:"data"`
	Error  string `json:"error,omitempty"`
}

func viewOf[S, T any](s state.DataState[[]S], convert func(S) T) ResourceView[T] {
	items := s.Data()
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}

	view := ResourceView[T]{Status: s.Phase().String(), Data: out}
	if err := s.Err(); err != nil {
		view.Error = err.Error()
	}
	return view
}

// AssetResponse is one balance line
type AssetResponse struct {
	AssetID string `json:"asset_id"`
	Code    string `json:"code"`
	Issuer  string `json:"issuer,omitempty"`
	Balance string `json:"balance"` // whole units
	Native  bool   `json:"native"`
}

func assetResponse(b account.AssetBalance) AssetResponse {
	return AssetResponse{
		AssetID: b.AssetID,
		Code:    b.Code,
		Issuer:  b.Issuer,
		Balance: b.FormattedBalance(),
		Native:  b.IsNative(),
	}
}

// PaymentResponse is one payment history entry
type PaymentResponse struct {
	ID                      string `json:"id"`
	Asset                   string `json:"asset"`
	Amount                  string `json:"amount"` // whole units
	Direction               string `json:"direction"`
	CounterpartyAddress     string `json:"counterparty_address"`
	CounterpartyContactName string `json:"counterparty_contact_name,omitempty"`
	CreatedAt               string `json:"created_at"` // RFC 3339
}

func paymentResponse(p account.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		ID:                      p.ID,
		Asset:                   p.Asset,
		Amount:                  p.FormattedAmount(),
		Direction:               string(p.Direction),
		CounterpartyAddress:     p.CounterpartyAddress,
		CounterpartyContactName: p.CounterpartyContactName,
		CreatedAt:               p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func identity[T any](v T) T { return v }

func contactsView(s state.DataState[[]contact.Contact]) ResourceView[contact.Contact] {
	return viewOf(s, identity[contact.Contact])
}

func kycView(s state.DataState[[]kyc.Entry]) ResourceView[kyc.Entry] {
	return viewOf(s, identity[kyc.Entry])
}
