// Package cli provides the interactive tokenkeeper command-line client.
//
// It drives a session.Manager through an interactive REPL: log in, inspect
// the session and its claims, call the protected API (which refreshes tokens
// transparently), and drop tokens on purpose to watch the refresh path work.
// A background listener prints session events and state changes as they
// happen.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
