// Package http exposes the pack opening engine over HTTP.
//
// Three principals reach the API: callers (JWT subject = account address),
// admins (JWT with an admin role claim), and the randomness oracle (a
// dedicated bearer token). Every error response carries the machine-readable
// code from internal/platform/errors.
package http
