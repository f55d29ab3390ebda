package horizon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/pkg/money"
)

// LedgerAdapter adapts the Horizon client to account.Client
type LedgerAdapter struct {
	client      *Client
	nativeAsset string
}

// Compile-time check that LedgerAdapter implements account.Client
var _ account.Client = (*LedgerAdapter)(nil)

// NewLedgerAdapter creates an adapter. nativeAsset is the code reported for
// native balances, e.g. XLM.
func NewLedgerAdapter(client *Client, nativeAsset string) *LedgerAdapter {
	return &LedgerAdapter{client: client, nativeAsset: nativeAsset}
}

// AccountExists reports false without error for a 404
func (a *LedgerAdapter) AccountExists(ctx context.Context, address string) (bool, error) {
	_, err := a.client.GetAccount(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBalances returns the account's balances. Liquidity pool shares are skipped.
func (a *LedgerAdapter) GetBalances(ctx context.Context, address string) ([]account.AssetBalance, error) {
	acc, err := a.client.GetAccount(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	result := make([]account.AssetBalance, 0, len(acc.Balances))
	for _, line := range acc.Balances {
		if line.AssetType == AssetTypeLiquidityPool {
			continue
		}
		b, err := a.convertBalance(line)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, nil
}

// GetPayments returns the payment history from the account's point of view.
// Failed transactions and operations that move no funds are skipped.
func (a *LedgerAdapter) GetPayments(ctx context.Context, address string) ([]account.PaymentRecord, error) {
	ops, err := a.client.GetPayments(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	result := make([]account.PaymentRecord, 0, len(ops))
	for _, op := range ops {
		if !op.TransactionSuccessful {
			continue
		}
		rec, ok, err := convertPayment(op, address)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (a *LedgerAdapter) convertBalance(line BalanceLine) (account.AssetBalance, error) {
	amount, err := money.ToStroops(line.Balance)
	if err != nil {
		return account.AssetBalance{}, fmt.Errorf("invalid balance %q: %w", line.Balance, err)
	}

	if line.AssetType == AssetTypeNative {
		return account.AssetBalance{
			AssetID: account.NativeAssetID,
			Code:    a.nativeAsset,
			Balance: amount,
		}, nil
	}

	return account.AssetBalance{
		AssetID: assetID(line.AssetType, line.AssetCode, line.AssetIssuer),
		Code:    line.AssetCode,
		Issuer:  line.AssetIssuer,
		Balance: amount,
	}, nil
}

// convertPayment maps an operation to a record. ok is false for operation
// types that are not payments.
func convertPayment(op PaymentOperation, address string) (account.PaymentRecord, bool, error) {
	createdAt, err := time.Parse(time.RFC3339, op.CreatedAt)
	if err != nil {
		return account.PaymentRecord{}, false, fmt.Errorf("invalid created_at on operation %s: %w", op.ID, err)
	}

	rec := account.PaymentRecord{
		ID:        op.ID,
		CreatedAt: createdAt,
	}

	var amount string
	switch op.Type {
	case OpPayment, OpPathPaymentStrictReceive, OpPathPaymentStrictSend:
		amount = op.Amount
		rec.Asset = assetID(op.AssetType, op.AssetCode, op.AssetIssuer)
		if op.From == address {
			rec.Direction = account.DirectionSent
			rec.CounterpartyAddress = op.To
		} else {
			rec.Direction = account.DirectionReceived
			rec.CounterpartyAddress = op.From
		}

	case OpCreateAccount:
		amount = op.StartingBalance
		rec.Asset = account.NativeAssetID
		if op.Funder == address {
			rec.Direction = account.DirectionSent
			rec.CounterpartyAddress = op.Account
		} else {
			rec.Direction = account.DirectionReceived
			rec.CounterpartyAddress = op.Funder
		}

	default:
		return account.PaymentRecord{}, false, nil
	}

	rec.Amount, err = money.ToStroops(amount)
	if err != nil {
		return account.PaymentRecord{}, false, fmt.Errorf("invalid amount on operation %s: %w", op.ID, err)
	}
	return rec, true, nil
}

func assetID(assetType, code, issuer string) string {
	if assetType == AssetTypeNative || assetType == "" {
		return account.NativeAssetID
	}
	return code + ":" + issuer
}
