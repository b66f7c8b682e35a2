// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the signed-in identity and its bearer token.
//
// A Store is the single owner of the session. It keeps three things in
// agreement: the in-memory Session, the durable copy in a storage.KV
// (keys "user" and "token"), and the Authorization header of the gateway
// client (through the TokenSink interface).
//
// # Lifecycle
//
//	anonymous --Login--> active --Refresh--> active
//	    ^                  |
//	    +------Logout------+
//
// Restore rebuilds the state from storage at startup without a network
// call. Storage write failures are logged and never returned: the
// in-memory state is authoritative for the running process.
//
// # Usage
//
//	store := session.NewStore(kv, gatewayClient, logger)
//	if s, ok := store.Restore(); ok {
//	    fmt.Println("signed in as", s.User.Email)
//	}
//
// Watcher reloads the Store when another ecosort process rewrites the
// store file (for example "ecosort logout" in a second terminal).
package session
