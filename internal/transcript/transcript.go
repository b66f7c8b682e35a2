// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TYPES
// =============================================================================

// Author identifies who wrote an entry.
type Author string

const (
	User Author = "user"
	Bot  Author = "bot"
)

// ImageRef points at an image the user attached. The bytes are not kept.
type ImageRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	MIME string    `json:"mime"`
	Size int64     `json:"size"`
}

// NewImageRef returns a reference with a fresh random id.
func NewImageRef(name, mime string, size int64) *ImageRef {
	return &ImageRef{ID: uuid.New(), Name: name, MIME: mime, Size: size}
}

// Entry is one transcript line.
type Entry struct {
	Seq    uint64    `json:"seq"`
	Author Author    `json:"author"`
	Text   string    `json:"text,omitempty"`
	Image  *ImageRef `json:"image,omitempty"`
	At     time.Time `json:"at"`
}

// IsBot reports whether the entry was written by the assistant.
func (e Entry) IsBot() bool { return e.Author == Bot }

// Errors returned by ReplaceLast.
var (
	ErrNotFound = errors.New("transcript: no entry with that sequence number")
	ErrNotLast  = errors.New("transcript: entry is not the most recent")
	ErrNotBot   = errors.New("transcript: entry was not written by the bot")
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is safe for concurrent use.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	nextSeq uint64

	subMu  sync.Mutex
	subs   map[int]func(Entry)
	nextID int

	now func() time.Time
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{
		nextSeq: 1,
		subs:    make(map[int]func(Entry)),
		now:     time.Now,
	}
}

// Append assigns the next sequence number and timestamp to e, stores it
// and returns the stored copy. Seq and At on the argument are ignored.
func (t *Transcript) Append(e Entry) Entry {
	t.mu.Lock()
	e.Seq = t.nextSeq
	e.At = t.now()
	if e.Image != nil {
		img := *e.Image
		e.Image = &img
	}
	t.nextSeq++
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	t.notify(e)
	return e
}

// ReplaceLast rewrites the text of the most recent entry. seq must name
// that entry and it must be a bot entry.
func (t *Transcript) ReplaceLast(seq uint64, text string) error {
	t.mu.Lock()
	n := len(t.entries)
	if seq == 0 || seq >= t.nextSeq || n == 0 {
		t.mu.Unlock()
		return ErrNotFound
	}
	last := &t.entries[n-1]
	if last.Seq != seq {
		t.mu.Unlock()
		return ErrNotLast
	}
	if !last.IsBot() {
		t.mu.Unlock()
		return ErrNotBot
	}
	last.Text = text
	e := *last
	t.mu.Unlock()

	t.notify(e)
	return nil
}

// Entries returns a snapshot of all entries in order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Last returns the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Get returns the entry with the given sequence number.
func (t *Transcript) Get(seq uint64) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	// Seq values are dense and start at 1, so the index is seq-1.
	if seq == 0 || seq > uint64(len(t.entries)) {
		return Entry{}, false
	}
	return t.entries[seq-1], true
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn to be called after every append or replace.
// fn runs on the mutating goroutine with no transcript lock held.
func (t *Transcript) Subscribe(fn func(Entry)) (unsubscribe func()) {
	t.subMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

func (t *Transcript) notify(e Entry) {
	t.subMu.Lock()
	fns := make([]func(Entry), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
