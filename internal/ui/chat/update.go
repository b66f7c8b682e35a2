// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/orchestrator"
)

// layout heights outside the viewport: header, attachment, input, status.
const chromeHeight = 5

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.render.resize(msg.Width)
		m.ready = true
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TypingMsg:
		m.typing = msg.On
		if msg.On && m.partial == "" {
			cmds = append(cmds, m.spinner.Tick)
		}
		m.refresh(true)

	case PartialMsg:
		m.partial = msg.Text
		m.refresh(true)

	case EntryMsg:
		if m.deps.Transcript != nil {
			m.entries = m.deps.Transcript.Entries()
		}
		m.refresh(true)

	case SessionMsg:
		if msg.Active {
			m.user = msg.Session.User.DisplayName()
		} else {
			m.user = ""
			m.setStatus("Signed out. Run 'ecosort login' to continue.", true)
		}

	case signedOutMsg:
		m.user = ""
		m.setStatus("Signed out.", false)

	case SubmitDoneMsg:
		m.busy = false
		m.typing = false
		m.partial = ""
		m.cancel.clear()
		m.input.Focus()
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.setStatus(msg.Err.Error(), true)
		}
		m.refresh(true)

	case statusMsg:
		m.setStatus(msg.text, msg.isErr)

	case spinner.TickMsg:
		if m.typing && m.partial == "" {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh(false)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel.clear()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Detach):
		if m.attachment != nil {
			m.attachment = nil
			m.setStatus("Attachment removed.", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		line := m.input.Value()
		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			m.input.Reset()
			return m.runCommand(strings.TrimSpace(line))
		}
		return m.submit(line)
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a submission in a command goroutine.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.deps.Orchestrator == nil {
		return m, nil
	}
	sub := orchestrator.Submission{Text: text, Image: m.attachment}
	if orchestrator.Normalize(sub.Text) == "" && sub.Image == nil {
		m.setStatus(orchestrator.ErrEmptySubmission.Error(), true)
		return m, nil
	}
	if m.deps.Session != nil && !m.deps.Session.Active() {
		m.setStatus("Not signed in. Run 'ecosort login' first.", true)
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel.set(cancel)
	m.busy = true
	m.attachment = nil
	m.status = ""
	m.input.Reset()
	m.input.Blur()

	orch := m.deps.Orchestrator
	log := m.log
	run := func() tea.Msg {
		err := orch.Submit(ctx, sub)
		if err != nil {
			log.Debug("submission ended", zap.Error(err))
		}
		return SubmitDoneMsg{Err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// refresh rebuilds the viewport content, following the bottom when asked.
func (m *Model) refresh(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}
