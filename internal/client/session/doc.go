// Package session implements the client's authentication state machine.
//
// A single Manager owns the session state (Unauthenticated, Authenticated,
// OfflineAuthenticated) and the decoded claims snapshot, and it is the only
// component that writes the token store. Other layers observe it through
// non-blocking reads and three streams:
//
//   - States: the current state replayed on subscribe, then every transition
//     in order.
//   - Claims: same semantics for the claims snapshot.
//   - Events: broadcast only. Events emitted while nobody listens, or while a
//     subscriber's buffer is full, are lost.
package session
