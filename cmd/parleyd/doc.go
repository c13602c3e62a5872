// Command parleyd runs the chat relay: it accepts websocket sessions,
// authenticates or registers identities against the SQLite store, and
// routes encrypted messages and broadcasts between online users.
//
// Usage:
//
//	parleyd -f parleyd.toml
//
// With no configuration file the built-in defaults are used (listen on
// :50000, database under ./db).
package main
