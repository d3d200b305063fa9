// Package oracle defines the randomness oracle contract.
//
// The engine talks to whichever oracle is configured through the Request
// side only; fulfillment arrives later, through the service's oracle
// callback endpoint, in whatever order the oracle delivers.
package oracle

import "context"

// Oracle requests verifiable randomness. The returned request id is
// oracle-assigned and globally unique.
type Oracle interface {
	Request(ctx context.Context, words int) (string, error)
}

// Fulfiller consumes delivered randomness for a pending request.
type Fulfiller interface {
	Fulfill(ctx context.Context, requestID string, words []uint64) error
}

// FulfillerFunc adapts a function to the Fulfiller interface.
type FulfillerFunc func(ctx context.Context, requestID string, words []uint64) error

// Fulfill implements Fulfiller.
func (f FulfillerFunc) Fulfill(ctx context.Context, requestID string, words []uint64) error {
	return f(ctx, requestID, words)
}
