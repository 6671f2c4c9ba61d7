// Package keystore provides the secret key used to encrypt tokens at rest.
//
// A Provider hands out a *Key, which is an opaque handle. A Key can seal and
// open data, but it offers no way to read the key bits back. Any failure to
// create or load the key is reported as common.ErrKeyUnavailable. Callers must
// treat that error as fatal for storage and must not retry it in a loop.
//
// Implementations
//
//   - FileProvider: keeps the key wrapped (AES-256-GCM) under a key-encryption
//     key derived with Argon2id from a device secret, in a 0600 file named
//     after the key alias.
//   - MemoryProvider: generates a process-lifetime key, for tests and
//     throwaway sessions.
package keystore
