// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stepTicker delivers ticks only when the test sends them.
type stepTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newStepTicker() *stepTicker {
	return &stepTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (s *stepTicker) C() <-chan time.Time { return s.ch }
func (s *stepTicker) Stop()               { s.once.Do(func() { close(s.stopped) }) }

func (s *stepTicker) factory(time.Duration) Ticker { return s }

// recorder captures observer calls.
type recorder struct {
	mu        sync.Mutex
	typing    []bool
	partials  []string
	committed []transcript.Entry
}

func (r *recorder) Typing(on bool) {
	r.mu.Lock()
	r.typing = append(r.typing, on)
	r.mu.Unlock()
}

func (r *recorder) Partial(s string) {
	r.mu.Lock()
	r.partials = append(r.partials, s)
	r.mu.Unlock()
}

func (r *recorder) Committed(e transcript.Entry) {
	r.mu.Lock()
	r.committed = append(r.committed, e)
	r.mu.Unlock()
}

func TestReveal_PartialsArePrefixes(t *testing.T) {
	tr := transcript.New()
	rec := &recorder{}
	eng := New(tr, Options{NewTicker: Instant, Observer: rec})

	p := answer.Payload{Plain: "Recyclé ♻ ok", Structured: "| Method |\n"}
	entry, err := eng.Reveal(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, Committed, eng.State())
	assert.Equal(t, transcript.Bot, entry.Author)
	assert.Equal(t, p.Plain+p.Structured, entry.Text)
	assert.Equal(t, 1, tr.Len())

	// one partial per rune, then the clearing partial
	runes := []rune(p.Plain)
	require.Len(t, rec.partials, len(runes)+1)
	prev := 0
	for i, s := range rec.partials[:len(runes)] {
		assert.True(t, strings.HasPrefix(p.Plain, s), "partial %d %q is not a prefix", i, s)
		assert.GreaterOrEqual(t, len(s), prev)
		assert.NotContains(t, s, "| Method |")
		prev = len(s)
	}
	assert.Equal(t, "", rec.partials[len(runes)])
	assert.Equal(t, []bool{true, false}, rec.typing)
	require.Len(t, rec.committed, 1)
	assert.Equal(t, entry, rec.committed[0])
}

func TestReveal_EmptyPlainCommitsOnFirstTick(t *testing.T) {
	tr := transcript.New()
	st := newStepTicker()
	rec := &recorder{}
	eng := New(tr, Options{NewTicker: st.factory, Observer: rec})

	done := make(chan error, 1)
	go func() {
		_, err := eng.Reveal(context.Background(), answer.Payload{Structured: "| t |\n"})
		done <- err
	}()

	st.ch <- time.Now()
	require.NoError(t, <-done)
	<-st.stopped

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "| t |\n", last.Text)
	assert.Equal(t, []string{""}, rec.partials)
}

func TestReveal_OneRunePerTick(t *testing.T) {
	tr := transcript.New()
	st := newStepTicker()
	partials := make(chan string, 8)
	eng := New(tr, Options{NewTicker: st.factory, Observer: Funcs{OnPartial: func(s string) { partials <- s }}})

	done := make(chan error, 1)
	go func() {
		_, err := eng.Reveal(context.Background(), answer.Payload{Plain: "hé"})
		done <- err
	}()

	st.ch <- time.Now()
	assert.Equal(t, "h", <-partials)
	assert.Equal(t, 0, tr.Len())
	st.ch <- time.Now()
	assert.Equal(t, "hé", <-partials)
	assert.Equal(t, 0, tr.Len(), "commit waits for the tick after the last rune")
	st.ch <- time.Now()
	require.NoError(t, <-done)
	assert.Equal(t, 1, tr.Len())
}

func TestReveal_CancelStopsWithoutCommit(t *testing.T) {
	tr := transcript.New()
	st := newStepTicker()
	rec := &recorder{}
	eng := New(tr, Options{NewTicker: st.factory, Observer: rec})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := eng.Reveal(ctx, answer.Payload{Plain: "long answer"})
		done <- err
	}()

	st.ch <- time.Now()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	<-st.stopped
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, Idle, eng.State())
	assert.Empty(t, rec.committed)
	assert.Equal(t, []bool{true, false}, rec.typing)
}

func TestReveal_CanceledBeforeStart(t *testing.T) {
	tr := transcript.New()
	eng := New(tr, Options{NewTicker: Instant})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Reveal(ctx, answer.Payload{Plain: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tr.Len())
}

func TestReveal_OneAtATime(t *testing.T) {
	tr := transcript.New()
	st := newStepTicker()
	started := make(chan struct{})
	eng := New(tr, Options{NewTicker: st.factory, Observer: Funcs{OnTyping: func(on bool) {
		if on {
			close(started)
		}
	}}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := eng.Reveal(ctx, answer.Payload{Plain: "first"})
		done <- err
	}()
	<-started

	_, err := eng.Reveal(context.Background(), answer.Payload{Plain: "second"})
	assert.ErrorIs(t, err, ErrRevealActive)

	cancel()
	<-done
	assert.Equal(t, Idle, eng.State())
}

func TestReveal_SequentialPayloads(t *testing.T) {
	tr := transcript.New()
	eng := New(tr, Options{NewTicker: Instant})

	for _, text := range []string{"one", "two", "three"} {
		_, err := eng.Reveal(context.Background(), answer.Payload{Plain: text})
		require.NoError(t, err)
	}
	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[2].Text)
	assert.Equal(t, uint64(3), entries[2].Seq)
}

func TestReveal_PeriodicTicker(t *testing.T) {
	tr := transcript.New()
	eng := New(tr, Options{Tick: time.Millisecond})

	entry, err := eng.Reveal(context.Background(), answer.Payload{Plain: "abc", Structured: "!"})
	require.NoError(t, err)
	assert.Equal(t, "abc!", entry.Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "revealing", Revealing.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "unknown", State(9).String())
}
