// Package ratelimit throttles per-caller open attempts.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// ErrRateLimited indicates the caller is inside the cooldown window.
var ErrRateLimited = apperrors.New(apperrors.CodeOpenRateLimited, "caller is rate limited")

// ErrBatchTooLarge indicates the requested batch exceeds the per-call ceiling.
var ErrBatchTooLarge = apperrors.New(apperrors.CodeOpenBatchTooLarge, "batch size exceeds the per-call ceiling")

// ErrBatchInvalid indicates a non-positive batch size.
var ErrBatchInvalid = apperrors.New(apperrors.CodeBatchCountInvalid, "batch size must be positive")

// Store persists per-address attempt timestamps so cooldowns survive
// restarts.
type Store interface {
	// OpenAttempt returns the last attempt time and the attempt count inside
	// the current window. A zero time means the address never opened.
	OpenAttempt(ctx context.Context, address string) (time.Time, int, error)
	// RecordOpenAttempt stores a new attempt.
	RecordOpenAttempt(ctx context.Context, address string, at time.Time, countInWindow int) error
}

// Limiter enforces a per-caller cooldown and a per-call batch ceiling.
//
// The batch ceiling bounds worst-case work per call, which keeps the
// later fulfillment (and any refund issued from it) tractable.
type Limiter struct {
	mu sync.Mutex

	store       Store
	minInterval time.Duration
	maxBatch    int
	clock       func() time.Time
}

// NewLimiter creates a rate limiter.
func NewLimiter(store Store, minInterval time.Duration, maxBatch int) *Limiter {
	return &Limiter{
		store:       store,
		minInterval: minInterval,
		maxBatch:    maxBatch,
		clock:       time.Now,
	}
}

// WithClock overrides the limiter clock, for tests.
func (l *Limiter) WithClock(clock func() time.Time) *Limiter {
	l.clock = clock
	return l
}

// Check validates an open attempt for the caller.
//
// The attempt timestamp is recorded for every attempt that passes the
// rate-limit check itself, even if the surrounding open later fails: a
// failed open still consumes the caller's cooldown window, so failed
// attempts are not free retries.
func (l *Limiter) Check(ctx context.Context, caller string, batchSize int) error {
	if batchSize <= 0 {
		return ErrBatchInvalid
	}
	if batchSize > l.maxBatch {
		return apperrors.WithMetadata(apperrors.CodeOpenBatchTooLarge, "batch size exceeds the per-call ceiling", map[string]string{
			"requested": strconv.Itoa(batchSize),
			"max":       strconv.Itoa(l.maxBatch),
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, count, err := l.store.OpenAttempt(ctx, caller)
	if err != nil {
		return err
	}

	now := l.clock()
	if !last.IsZero() && now.Sub(last) < l.minInterval {
		retryIn := l.minInterval - now.Sub(last)
		return apperrors.WithMetadata(apperrors.CodeOpenRateLimited, "caller is rate limited", map[string]string{
			"retry_in": retryIn.Round(time.Second).String(),
		})
	}

	if !last.IsZero() && now.Sub(last) < 2*l.minInterval {
		count++
	} else {
		count = 1
	}
	return l.store.RecordOpenAttempt(ctx, caller, now, count)
}
