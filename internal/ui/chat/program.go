// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecosort/ecosort-tui/internal/reveal"
	"github.com/ecosort/ecosort-tui/internal/session"
	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/ui/styles"
)

// Run shows the chat screen until the user quits or ctx ends. eng must be
// the engine the orchestrator in deps reveals through.
func Run(ctx context.Context, theme *styles.Theme, deps Deps, eng *reveal.Engine) error {
	m := New(ctx, theme, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	disconnect := connect(p, deps, eng)
	defer disconnect()

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.cancel.clear()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// connect forwards reveal progress, transcript appends and session changes
// to p as messages. p.Send blocks until the event loop receives, so none of
// these sources may be driven from inside Update.
func connect(p *tea.Program, deps Deps, eng *reveal.Engine) (disconnect func()) {
	var undo []func()

	if eng != nil {
		eng.SetObserver(reveal.Funcs{
			OnTyping:  func(on bool) { p.Send(TypingMsg{On: on}) },
			OnPartial: func(s string) { p.Send(PartialMsg{Text: s}) },
		})
		undo = append(undo, func() { eng.SetObserver(nil) })
	}
	if deps.Transcript != nil {
		undo = append(undo, deps.Transcript.Subscribe(func(e transcript.Entry) { p.Send(EntryMsg{Entry: e}) }))
	}
	if deps.Session != nil {
		undo = append(undo, deps.Session.Subscribe(func(s session.Session, active bool) {
			p.Send(SessionMsg{Session: s, Active: active})
		}))
	}

	return func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
}
