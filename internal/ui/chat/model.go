// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/logging"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
	"github.com/ecosort/ecosort-tui/internal/session"
	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/ui/styles"
)

// Deps are the collaborators the chat screen drives.
type Deps struct {
	Orchestrator   *orchestrator.Orchestrator
	Transcript     *transcript.Transcript
	Session        *session.Store
	MaxUploadBytes int64
	Markdown       bool
	WordWrap       int
	Logger         *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx  context.Context
	deps Deps
	log  *zap.Logger

	theme *styles.Theme
	keys  KeyMap

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Submission state
	busy    bool
	typing  bool
	partial string
	cancel  *cancelManager

	attachment *orchestrator.Upload
	entries    []transcript.Entry
	render     *entryRenderer

	user      string
	status    string
	statusErr bool
	showHelp  bool
}

// New creates a chat model. ctx bounds every submission it starts.
func New(ctx context.Context, theme *styles.Theme, deps Deps) Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "Ask about recycling, or /attach a photo..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Typing

	m := Model{
		ctx:      ctx,
		deps:     deps,
		log:      logging.OrNop(deps.Logger).Named("chat"),
		theme:    theme,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(80, 20),
		input:    ti,
		spinner:  sp,
		cancel:   newCancelManager(),
		render:   newEntryRenderer(theme, deps.Markdown, deps.WordWrap),
	}
	if deps.Transcript != nil {
		m.entries = deps.Transcript.Entries()
	}
	if deps.Session != nil {
		if s, ok := deps.Session.Current(); ok {
			m.user = s.User.DisplayName()
		}
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Busy reports whether a submission is in flight.
func (m Model) Busy() bool {
	return m.busy
}
