// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/logging"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

// DefaultTick is the reveal period.
const DefaultTick = 4 * time.Millisecond

// ErrRevealActive is returned when Reveal is called while another payload
// is still being revealed on the same engine.
var ErrRevealActive = errors.New("reveal: another reply is being revealed")

// =============================================================================
// STATE
// =============================================================================

// State is the engine's position in the reveal of its current payload.
type State int

const (
	Idle State = iota
	Revealing
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Revealing:
		return "revealing"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// =============================================================================
// OBSERVER
// =============================================================================

// Observer receives reveal progress. Calls arrive on the goroutine running
// Reveal, in order.
type Observer interface {
	// Typing reports whether the typing indicator should show.
	Typing(on bool)
	// Partial publishes the visible prefix. An empty string clears it.
	Partial(text string)
	// Committed reports the entry written to the transcript.
	Committed(e transcript.Entry)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	OnTyping    func(bool)
	OnPartial   func(string)
	OnCommitted func(transcript.Entry)
}

func (f Funcs) Typing(on bool) {
	if f.OnTyping != nil {
		f.OnTyping(on)
	}
}

func (f Funcs) Partial(text string) {
	if f.OnPartial != nil {
		f.OnPartial(text)
	}
}

func (f Funcs) Committed(e transcript.Entry) {
	if f.OnCommitted != nil {
		f.OnCommitted(e)
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// Tick is the period between revealed runes. Zero means DefaultTick.
	Tick time.Duration
	// NewTicker builds the driver. Nil means Periodic.
	NewTicker NewTickerFunc
	Observer  Observer
	Logger    *zap.Logger
}

// Engine reveals one payload at a time into a transcript.
type Engine struct {
	tr        *transcript.Transcript
	tick      time.Duration
	newTicker NewTickerFunc
	log       *zap.Logger

	mu    sync.Mutex
	state State
	obs   Observer
}

// New creates an engine that commits into tr.
func New(tr *transcript.Transcript, opts Options) *Engine {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.NewTicker == nil {
		opts.NewTicker = Periodic
	}
	obs := opts.Observer
	if obs == nil {
		obs = Funcs{}
	}
	return &Engine{
		tr:        tr,
		tick:      opts.Tick,
		newTicker: opts.NewTicker,
		log:       logging.OrNop(opts.Logger).Named("reveal"),
		obs:       obs,
	}
}

// SetObserver replaces the observer. It takes effect at the next Reveal.
func (e *Engine) SetObserver(obs Observer) {
	if obs == nil {
		obs = Funcs{}
	}
	e.mu.Lock()
	e.obs = obs
	e.mu.Unlock()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Reveal streams p.Plain one rune per tick and then appends exactly one
// bot entry holding p.Plain followed by p.Structured. It blocks until the
// entry is committed or ctx is done. On cancellation nothing is committed
// and ctx.Err() is returned.
func (e *Engine) Reveal(ctx context.Context, p answer.Payload) (transcript.Entry, error) {
	e.mu.Lock()
	if e.state == Revealing {
		e.mu.Unlock()
		return transcript.Entry{}, ErrRevealActive
	}
	e.state = Revealing
	obs := e.obs
	e.mu.Unlock()

	runes := []rune(p.Plain)
	e.log.Debug("reveal started", zap.Int("runes", len(runes)), zap.Int("structured_bytes", len(p.Structured)))

	obs.Typing(true)
	t := e.newTicker(e.tick)
	defer t.Stop()

	shown := 0
	for {
		// Cancellation wins over a ready tick.
		if err := ctx.Err(); err != nil {
			return transcript.Entry{}, e.abort(obs, err)
		}
		select {
		case <-ctx.Done():
			return transcript.Entry{}, e.abort(obs, ctx.Err())
		case <-t.C():
		}

		if shown < len(runes) {
			shown++
			obs.Partial(string(runes[:shown]))
			continue
		}

		obs.Partial("")
		obs.Typing(false)
		entry := e.tr.Append(transcript.Entry{Author: transcript.Bot, Text: p.Text()})
		e.setState(Committed)
		obs.Committed(entry)
		e.log.Debug("reveal committed", zap.Uint64("seq", entry.Seq))
		return entry, nil
	}
}

func (e *Engine) abort(obs Observer, err error) error {
	obs.Partial("")
	obs.Typing(false)
	e.setState(Idle)
	e.log.Debug("reveal canceled", zap.Error(err))
	return err
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
