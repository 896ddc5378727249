// Package rotauth provides a refresh-token lifecycle engine: sealed opaque
// refresh tokens, one-time-use rotation, and family-based theft detection
// backed by a shared Redis consumption ledger.
//
// The package is designed for fleets of stateless service instances behind a
// load balancer: Engine methods are safe to call from multiple goroutines and
// multiple processes after initialization through [Builder.Build], with all
// shared mutable state living in Redis.
//
// # Protocol
//
// Login mints the first token of a fresh family via [Engine.Issue]. Every
// /refresh call trades the presented token through [Engine.Rotate]: the token
// is atomically consumed (first writer wins) and a successor with a fresh jti
// but the same family is returned. Presenting an already-consumed token is
// theft evidence and poisons the entire family; every descendant, used or not,
// is rejected from that point on. Logout consumes a single token via
// [Engine.Revoke]; sign-out-everywhere poisons the family deliberately.
//
// # Architecture boundaries
//
// rotauth is the public surface. It exposes [Engine], [Builder], [Config],
// audit types, and metrics. Sealing lives in the token package, ledger
// operations in the ledger package, access-token signing in the jwt package.
//
// # What this package must NOT do
//
//   - Tell a caller why a token was rejected beyond invalid-vs-family-dead;
//     decode failure detail is audit-log-only to avoid oracle leakage.
//   - Proceed on any ledger failure. An unreachable ledger rejects the
//     request; it never silently allows reuse.
//   - Expose Redis clients or sealed-format details in its public API.
package rotauth
