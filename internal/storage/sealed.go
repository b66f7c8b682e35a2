// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// SealedPrefix marks a sealed value (format: ENC:base64(nonce|ciphertext|tag)).
const SealedPrefix = "ENC:"

// KeySaltKey is the underlying-store key holding the PBKDF2 salt.
const KeySaltKey = "seal_salt"

const (
	keySize  = 32 // AES-256
	saltSize = 32

	// DefaultIterations follows the OWASP 2023 figure for PBKDF2-SHA-256.
	DefaultIterations = 600000
)

var (
	// ErrInvalidSealed indicates a sealed value is not valid base64 or too short.
	ErrInvalidSealed = errors.New("storage: invalid sealed value")

	// ErrUnseal indicates the passphrase is wrong or the value was tampered with.
	ErrUnseal = errors.New("storage: unseal failed: authentication tag mismatch")
)

// =============================================================================
// SEALED STORE
// =============================================================================

// SealOptions configures NewSealedStore.
type SealOptions struct {
	// Keys lists the keys whose values are encrypted. Other keys pass through.
	Keys []string

	// Iterations overrides DefaultIterations. Tests lower it.
	Iterations int
}

// SealedStore encrypts selected values before handing them to the wrapped KV.
type SealedStore struct {
	inner  KV
	aead   cipher.AEAD
	sealed map[string]bool
}

// NewSealedStore derives the AES key from passphrase and a salt kept in
// inner (created on first use).
func NewSealedStore(inner KV, passphrase string, opts SealOptions) (*SealedStore, error) {
	if passphrase == "" {
		return nil, errors.New("storage: empty passphrase")
	}
	iter := opts.Iterations
	if iter <= 0 {
		iter = DefaultIterations
	}

	salt, err := loadOrCreateSalt(inner)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, iter, keySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make(map[string]bool, len(opts.Keys))
	for _, k := range opts.Keys {
		sealed[k] = true
	}
	return &SealedStore{inner: inner, aead: aead, sealed: sealed}, nil
}

// Path forwards to the wrapped store when it is file backed.
func (s *SealedStore) Path() string {
	if p, ok := s.inner.(Pather); ok {
		return p.Path()
	}
	return ""
}

// Get implements KV.
func (s *SealedStore) Get(key string) (string, bool, error) {
	v, ok, err := s.inner.Get(key)
	if err != nil || !ok || !s.sealed[key] {
		return v, ok, err
	}
	plain, err := s.open(v)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", key, err)
	}
	return plain, true, nil
}

// Set implements KV.
func (s *SealedStore) Set(key, value string) error {
	if s.sealed[key] {
		ct, err := s.seal(value)
		if err != nil {
			return err
		}
		value = ct
	}
	return s.inner.Set(key, value)
}

// Delete implements KV.
func (s *SealedStore) Delete(keys ...string) error {
	return s.inner.Delete(keys...)
}

// Close implements KV.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}

func (s *SealedStore) seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ct := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// open returns values written before sealing was enabled unchanged.
func (s *SealedStore) open(value string) (string, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", ErrInvalidSealed
	}
	ns := s.aead.NonceSize()
	if len(data) < ns {
		return "", ErrInvalidSealed
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", ErrUnseal
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

func loadOrCreateSalt(kv KV) ([]byte, error) {
	encoded, ok, err := kv.Get(KeySaltKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	if ok {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err == nil && len(salt) == saltSize {
			return salt, nil
		}
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := kv.Set(KeySaltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	return salt, nil
}

// zero wipes key material.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
