// Package storage defines the persistence interfaces for the pack opening
// engine.
//
// It provides a high-level abstraction for storing the card catalog, deck
// definitions, opening requests, accounts, credits, emission counters, and
// the security event journal. Implementations of these interfaces (e.g.,
// using SQLite) can be found in subpackages.
//
// # Error Types
//
// The package defines common error types used across storage implementations:
//   - ErrNotFound: Indicates a requested record is missing.
package storage
