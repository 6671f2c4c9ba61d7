// Package tokens persists the access/refresh token pair encrypted at rest.
//
// Layers, from the bottom up:
//
//   - Cipher: AES-256-GCM over the key from a keystore.Provider.
//   - Codec: canonical protobuf Struct encoding of a Pair, sealed by Cipher.
//     Decoding never fails. Corrupted, tampered or missing data all decode
//     to the empty Pair.
//   - Backend: durable bytes (FileBackend, SQLiteBackend).
//   - Store: an in-memory snapshot plus serialized read-modify-write updates
//     on top of a Backend.
//
// Only session.Manager is expected to call Store.UpdateAtomically.
package tokens
