// Package ledger provides the Redis-backed consumption ledger: the single
// arbiter of whether a token instance has been consumed and whether a token
// family has been invalidated.
//
// # Key layout
//
//	{prefix}:consumed:{jti}              presence marker, TTL = remaining token lifetime
//	{prefix}:invalidated_family:{family} presence marker, TTL = full refresh lifetime
//
// Markers carry no value semantics beyond existence and self-expire with the
// token they guard; no garbage-collection pass exists or is needed.
//
// # Concurrency
//
// MarkConsumed is SETNX. Two handlers racing on the same jti resolve to
// exactly one writer; the loser must be treated as a replay, never retried.
//
// # What this package must NOT do
//
//   - Import rotauth or token (no upward imports).
//   - Decide policy: it records and answers, the Engine judges.
//   - Swallow transport errors; every Redis failure surfaces as
//     [ErrUnavailable] so callers can fail closed.
package ledger
