// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/ecosort/ecosort-tui/internal/config"
)

// Persisted session keys.
const (
	KeyUser         = "user"
	KeyToken        = "token"
	KeyPendingEmail = "pending_email"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// KV is a durable string key-value store.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(keys ...string) error

	Close() error
}

// Pather is implemented by stores backed by a single file on disk.
type Pather interface {
	Path() string
}

// Open builds the store selected by cfg.Storage. When the environment
// variable named by storage.passphrase_env is set, the token is sealed.
func Open(cfg *config.Config) (KV, error) {
	dir, err := cfg.StorageDir()
	if err != nil {
		return nil, err
	}

	var kv KV
	switch cfg.Storage.Backend {
	case "sqlite":
		kv, err = OpenSQLite(dir)
	case "file", "":
		kv, err = OpenFile(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Storage.PassphraseEnv == "" {
		return kv, nil
	}
	pass := os.Getenv(cfg.Storage.PassphraseEnv)
	if pass == "" {
		return kv, nil
	}

	sealed, err := NewSealedStore(kv, pass, SealOptions{Keys: []string{KeyToken}})
	if err != nil {
		kv.Close()
		return nil, err
	}
	return sealed, nil
}
