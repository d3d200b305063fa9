// Package payment validates sale payments and manages refund credits.
package payment

import (
	"context"
	"strconv"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// Backend transfers native units to an address. Transfers can fail when the
// recipient cannot accept funds (frozen or missing account).
type Backend interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// CreditStore persists per-address withdrawable credits.
type CreditStore interface {
	// AddCredit adds amount to the address's withdrawable balance.
	AddCredit(ctx context.Context, address string, amount int64) error
	// TakeCredit atomically zeroes and returns the address's balance.
	TakeCredit(ctx context.Context, address string) (int64, error)
	// Credit reads the address's balance.
	Credit(ctx context.Context, address string) (int64, error)
}

// ErrInsufficientPayment indicates the transferred value is below the price.
var ErrInsufficientPayment = apperrors.New(apperrors.CodePaymentInsufficient, "insufficient payment")

// ErrAmountInvalid indicates a negative transferred value.
var ErrAmountInvalid = apperrors.New(apperrors.CodePaymentAmountInvalid, "payment amount must not be negative")

// ErrWithdrawalEmpty indicates the caller has no withdrawable credit.
var ErrWithdrawalEmpty = apperrors.New(apperrors.CodeWithdrawalEmpty, "no withdrawable credit")

// Guard validates transferred value against prices and issues refunds.
//
// A refund transfer failure never aborts the surrounding sale: the amount
// degrades to a withdrawable credit instead, because failing a sale over a
// refund transport error would let a hostile recipient grief other sales.
type Guard struct {
	backend Backend
	credits CreditStore
}

// NewGuard creates a payment guard.
func NewGuard(backend Backend, credits CreditStore) *Guard {
	return &Guard{backend: backend, credits: credits}
}

// Validate checks transferred value against price and returns the change.
func (g *Guard) Validate(value, price int64) (int64, error) {
	if value < 0 {
		return 0, ErrAmountInvalid
	}
	if value < price {
		return 0, apperrors.WithMetadata(apperrors.CodePaymentInsufficient, "insufficient payment", map[string]string{
			"required": strconv.FormatInt(price, 10),
			"sent":     strconv.FormatInt(value, 10),
		})
	}
	return value - price, nil
}

// RefundResult describes how a refund was delivered.
type RefundResult struct {
	Amount int64
	// Credited is true when the direct transfer failed and the amount was
	// stored as withdrawable credit instead.
	Credited bool
}

// Refund returns amount to recipient, preferring a direct transfer and
// falling back to a stored credit when the transfer fails.
func (g *Guard) Refund(ctx context.Context, recipient string, amount int64) (RefundResult, error) {
	if amount <= 0 {
		return RefundResult{}, nil
	}

	if err := g.backend.Transfer(ctx, recipient, amount); err != nil {
		if creditErr := g.credits.AddCredit(ctx, recipient, amount); creditErr != nil {
			return RefundResult{}, apperrors.Wrap(apperrors.CodeRefundTransportFailed, "refund transfer and credit both failed", creditErr)
		}
		return RefundResult{Amount: amount, Credited: true}, nil
	}
	return RefundResult{Amount: amount}, nil
}

// Withdraw pays out the caller's accumulated credit. The credit is restored
// if the payout transfer fails.
func (g *Guard) Withdraw(ctx context.Context, address string) (int64, error) {
	amount, err := g.credits.TakeCredit(ctx, address)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrWithdrawalEmpty
	}

	if err := g.backend.Transfer(ctx, address, amount); err != nil {
		if creditErr := g.credits.AddCredit(ctx, address, amount); creditErr != nil {
			return 0, apperrors.Wrap(apperrors.CodeWithdrawalFailed, "withdrawal failed and credit could not be restored", creditErr)
		}
		return 0, apperrors.Wrap(apperrors.CodeWithdrawalFailed, "withdrawal transfer failed", err)
	}
	return amount, nil
}

// Credit reads the address's withdrawable balance.
func (g *Guard) Credit(ctx context.Context, address string) (int64, error) {
	return g.credits.Credit(ctx, address)
}
