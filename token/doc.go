// Package token provides the opaque refresh-token wire format: a compact
// versioned binary claims encoding sealed with AES-GCM.
//
// # Wire format
//
// Claims are encoded as version byte, length-prefixed identifier strings, a
// type tag, and big-endian int64 timestamps, then encrypted and authenticated
// with AES-256-GCM (random 96-bit nonce prepended to the ciphertext) and
// base64url-encoded without padding. Nothing in the claims, including the
// subject identifier, is readable or forgeable without the shared key.
//
// # Architecture boundaries
//
// This package owns the [Codec] and the [Claims] model. It performs no I/O and
// holds no state beyond the sealed key; consumption tracking and lineage
// invalidation belong to the ledger and the Engine.
//
// # What this package must NOT do
//
//   - Import rotauth or ledger (no upward imports).
//   - Consult any store during Encode or Decode.
//   - Report to callers whether a decode failure was tampering or expiry in a
//     way that reaches clients; the Engine collapses all decode failures.
package token
