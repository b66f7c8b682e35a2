// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/logging"
	"github.com/ecosort/ecosort-tui/internal/storage"
)

// TokenSink receives the bearer token whenever the session changes.
// The gateway client implements it.
type TokenSink interface {
	SetAuthToken(token string)
	ClearAuthToken()
}

// Observer is called after every session change. active is false once
// the session has ended.
type Observer func(s Session, active bool)

// =============================================================================
// STORE
// =============================================================================

// Store owns the current session. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current *Session

	kv   storage.KV
	sink TokenSink
	log  *zap.Logger

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore creates an anonymous store. sink may be nil.
func NewStore(kv storage.KV, sink TokenSink, logger *zap.Logger) *Store {
	return &Store{
		kv:        kv,
		sink:      sink,
		log:       logging.OrNop(logger).Named("session"),
		observers: make(map[int]Observer),
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Restore activates the persisted session when both the user record and
// the token are present and the record decodes. Otherwise the store is
// anonymous and the gateway header is cleared. No network call is made.
//
// Restore is also how the Watcher applies changes made by other
// processes; observers fire only when the state actually changes.
func (s *Store) Restore() (Session, bool) {
	next := s.load()

	s.mu.Lock()
	changed := !sameSession(s.current, next)
	s.current = next
	s.pushLocked()
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	if next == nil {
		return Session{}, false
	}
	return *next, true
}

func (s *Store) load() *Session {
	if s.kv == nil {
		return nil
	}
	rawUser, okUser, err := s.kv.Get(storage.KeyUser)
	if err != nil {
		s.log.Warn("failed to read stored user", zap.Error(err))
		return nil
	}
	token, okToken, err := s.kv.Get(storage.KeyToken)
	if err != nil {
		s.log.Warn("failed to read stored token", zap.Error(err))
		return nil
	}
	if !okUser || !okToken || rawUser == "" || token == "" {
		return nil
	}
	user, err := decodeIdentity(rawUser)
	if err != nil {
		s.log.Warn("stored user record is malformed, staying anonymous", zap.Error(err))
		return nil
	}
	return &Session{User: user, Token: token}
}

// Login activates the session for user and token, persists both and
// updates the gateway. Calling it again with the same values is a no-op
// apart from rewriting storage.
func (s *Store) Login(user Identity, token string) {
	next := &Session{User: user, Token: token}

	s.mu.Lock()
	changed := !sameSession(s.current, next)
	s.current = next
	s.pushLocked()
	s.mu.Unlock()

	if data, err := json.Marshal(user); err != nil {
		s.log.Warn("failed to encode user record", zap.Error(err))
	} else {
		s.persist(storage.KeyUser, string(data))
	}
	s.persist(storage.KeyToken, token)

	s.log.Info("signed in", zap.String("user_id", user.ID))
	if changed {
		s.notify(next)
	}
}

// Logout removes the persisted session, deactivates it and clears the
// gateway header.
func (s *Store) Logout() {
	s.mu.Lock()
	was := s.current
	s.current = nil
	s.pushLocked()
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Delete(storage.KeyUser, storage.KeyToken); err != nil {
			s.log.Warn("failed to clear stored session", zap.Error(err))
		}
	}

	if was != nil {
		s.log.Info("signed out", zap.String("user_id", was.User.ID))
		s.notify(nil)
	}
}

// Refresh replaces the token of the active session. It does nothing when
// newToken is empty or no session is active.
func (s *Store) Refresh(newToken string) {
	if newToken == "" {
		return
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	changed := s.current.Token != newToken
	next := &Session{User: s.current.User, Token: newToken}
	s.current = next
	s.pushLocked()
	s.mu.Unlock()

	s.persist(storage.KeyToken, newToken)
	if changed {
		s.log.Debug("token refreshed", zap.String("user_id", next.User.ID))
		s.notify(next)
	}
}

// Current returns a copy of the active session.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Active reports whether a session is active.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// =============================================================================
// PENDING VERIFICATION
// =============================================================================

// SetPendingEmail remembers the address awaiting email verification.
func (s *Store) SetPendingEmail(email string) {
	s.persist(storage.KeyPendingEmail, email)
}

// PendingEmail returns the address awaiting verification, if any.
func (s *Store) PendingEmail() (string, bool) {
	if s.kv == nil {
		return "", false
	}
	v, ok, err := s.kv.Get(storage.KeyPendingEmail)
	if err != nil {
		s.log.Warn("failed to read pending email", zap.Error(err))
		return "", false
	}
	return v, ok && v != ""
}

// ClearPendingEmail forgets the pending address.
func (s *Store) ClearPendingEmail() {
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(storage.KeyPendingEmail); err != nil {
		s.log.Warn("failed to clear pending email", zap.Error(err))
	}
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// notify runs observers outside every lock so they may call back into
// the store.
func (s *Store) notify(next *Session) {
	s.obsMu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	var snap Session
	if next != nil {
		snap = *next
	}
	for _, fn := range fns {
		fn(snap, next != nil)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// pushLocked mirrors the current token into the sink. Caller holds mu.
func (s *Store) pushLocked() {
	if s.sink == nil {
		return
	}
	if s.current == nil || s.current.Token == "" {
		s.sink.ClearAuthToken()
		return
	}
	s.sink.SetAuthToken(s.current.Token)
}

// persist writes one key, logging failures.
func (s *Store) persist(key, value string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(key, value); err != nil {
		s.log.Warn("failed to persist session value", zap.String("key", key), zap.Error(err))
	}
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
