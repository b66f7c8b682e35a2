// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store behind the session.
//
// The session persists a handful of string values (the user record as
// JSON, the bearer token, the email awaiting verification). Two backends
// implement KV:
//
//   - FileStore: one JSON document written atomically (session.json)
//   - SQLiteStore: a single kv table in session.db (modernc.org/sqlite)
//
// SealedStore wraps either backend and encrypts selected keys with
// AES-256-GCM under a PBKDF2-SHA-256 key derived from a passphrase.
//
// # Usage
//
//	kv, err := storage.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer kv.Close()
//	token, ok, err := kv.Get(storage.KeyToken)
package storage
