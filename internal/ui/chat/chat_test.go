// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
	"github.com/ecosort/ecosort-tui/internal/reveal"
	"github.com/ecosort/ecosort-tui/internal/session"
	"github.com/ecosort/ecosort-tui/internal/storage"
	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/ui/styles"
)

type fakeBackend struct{}

func (fakeBackend) Predict(_ context.Context, text string) (backend.Prediction, error) {
	return backend.Prediction{Response: "You asked: " + text}, nil
}

func (fakeBackend) Classify(context.Context, backend.Image) (backend.ClassifyResult, error) {
	return backend.ClassifyResult{}, nil
}

func newTestDeps(t *testing.T, signedIn bool) (Deps, *reveal.Engine) {
	t.Helper()
	kv, err := storage.OpenFile(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := session.NewStore(kv, gateway.NewClient(nil), nil)
	if signedIn {
		store.Login(session.Identity{ID: "u1", Name: "Ada"}, "t1")
	}

	tr := transcript.New()
	eng := reveal.New(tr, reveal.Options{NewTicker: reveal.Instant})
	return Deps{
		Orchestrator:   orchestrator.New(fakeBackend{}, tr, eng, nil),
		Transcript:     tr,
		Session:        store,
		MaxUploadBytes: 1 << 20,
	}, eng
}

func newTestModel(t *testing.T, signedIn bool) (Model, Deps) {
	t.Helper()
	deps, _ := newTestDeps(t, signedIn)
	m := New(context.Background(), styles.NewTheme("dark"), deps)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model), deps
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and any batched commands, returning their messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestView_BeforeResize(t *testing.T) {
	m := New(context.Background(), styles.NewTheme("dark"), Deps{})
	assert.Equal(t, "Loading...", m.View())
}

func TestView_Header(t *testing.T) {
	m, _ := newTestModel(t, true)
	assert.Contains(t, m.View(), "EcoSort")
	assert.Contains(t, m.View(), "Ada")
}

func TestSubmit_RoundTrip(t *testing.T) {
	m, deps := newTestModel(t, true)

	m.input.SetValue("  how do I recycle glass?  ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())
	assert.Empty(t, m.input.Value())

	// input is ignored while busy
	m, again := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	var done *SubmitDoneMsg
	for _, msg := range drain(cmd) {
		if d, ok := msg.(SubmitDoneMsg); ok {
			done = &d
		}
	}
	require.NotNil(t, done)
	require.NoError(t, done.Err)
	require.Equal(t, 2, deps.Transcript.Len())

	last, _ := deps.Transcript.Last()
	m, _ = update(t, m, EntryMsg{Entry: last})
	m, _ = update(t, m, *done)

	assert.False(t, m.Busy())
	out := m.renderTranscript()
	assert.Contains(t, out, "how do I recycle glass?")
	assert.Contains(t, out, "You asked: how do I recycle glass?")
}

func TestSubmit_Empty(t *testing.T) {
	m, deps := newTestModel(t, true)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, m.statusErr)
	assert.Equal(t, orchestrator.ErrEmptySubmission.Error(), m.status)
	assert.Zero(t, deps.Transcript.Len())
}

func TestSubmit_RequiresSession(t *testing.T) {
	m, _ := newTestModel(t, false)
	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.Busy())
	assert.Contains(t, m.status, "Not signed in")
}

func TestTypingIndicator(t *testing.T) {
	m, _ := newTestModel(t, true)

	m, _ = update(t, m, TypingMsg{On: true})
	assert.Contains(t, m.renderTranscript(), answer.TypingPlaceholder)

	m, _ = update(t, m, PartialMsg{Text: "Rinse the"})
	out := m.renderTranscript()
	assert.Contains(t, out, "Rinse the")
	assert.NotContains(t, out, answer.TypingPlaceholder)

	m, _ = update(t, m, PartialMsg{})
	m, _ = update(t, m, TypingMsg{On: false})
	assert.NotContains(t, m.renderTranscript(), "Rinse the")
}

func TestAttachCommand(t *testing.T) {
	m, _ := newTestModel(t, true)
	dir := t.TempDir()
	png := filepath.Join(dir, "bottle.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\nxx"), 0o600))

	m.input.SetValue("/attach")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "Usage")

	m.input.SetValue("/attach " + filepath.Join(dir, "missing.png"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.statusErr)
	assert.Nil(t, m.attachment)

	m.input.SetValue("/attach " + png)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.attachment)
	assert.Equal(t, "bottle.png", m.attachment.Name)
	assert.Contains(t, m.View(), "📎 bottle.png")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, m.attachment)
}

func TestExportCommand(t *testing.T) {
	m, deps := newTestModel(t, true)
	deps.Transcript.Append(transcript.Entry{Author: transcript.User, Text: "hi"})
	deps.Transcript.Append(transcript.Entry{Author: transcript.Bot, Text: "hello"})
	m, _ = update(t, m, EntryMsg{})

	path := filepath.Join(t.TempDir(), "chat.md")
	m.input.SetValue("/export " + path)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.statusErr, m.status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "user: Ada")
}

func TestLogoutCommand(t *testing.T) {
	m, deps := newTestModel(t, true)
	m.input.SetValue("/logout")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, deps.Session.Active(), "logout runs in the command, not in Update")

	for _, msg := range drain(cmd) {
		m, _ = update(t, m, msg)
	}
	assert.False(t, deps.Session.Active())
	assert.Equal(t, "Signed out.", m.status)
	assert.Contains(t, m.View(), "not signed in")

	m.input.SetValue("/logout")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "Not signed in.", m.status)
}

func TestSessionMsg(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = update(t, m, SessionMsg{Active: false})
	assert.Empty(t, m.user)
	assert.True(t, m.statusErr)

	m, _ = update(t, m, SessionMsg{Active: true, Session: session.Session{User: session.Identity{Name: "Bo"}}})
	assert.Equal(t, "Bo", m.user)
}

func TestUnknownCommandAndHelp(t *testing.T) {
	m, _ := newTestModel(t, true)
	m.input.SetValue("/frobnicate")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "Unknown command /frobnicate")

	m.input.SetValue("/help")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "/attach <path>")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, true)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	m.input.SetValue("/quit")
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestEntryRenderer_Cache(t *testing.T) {
	r := newEntryRenderer(styles.NewTheme("dark"), false, 60)
	e := transcript.Entry{Seq: 1, Author: transcript.Bot, Text: "first"}
	assert.Contains(t, r.entry(e), "first")

	e.Text = "second"
	assert.Contains(t, r.entry(e), "second", "changed text invalidates the cache")

	img := transcript.Entry{Seq: 2, Author: transcript.User, Image: &transcript.ImageRef{Name: "a.jpg", Size: 1500}}
	assert.True(t, strings.Contains(r.entry(img), "📎 a.jpg (1.5 kB)"))
}

// =============================================================================
// LIVE PROGRAM
// =============================================================================

// recordingModel reports selected messages after Model has handled them.
type recordingModel struct {
	Model
	events chan<- tea.Msg
}

func (r recordingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := r.Model.Update(msg)
	r.Model = next.(Model)
	switch msg.(type) {
	case SubmitDoneMsg, signedOutMsg:
		r.events <- msg
	}
	return r, cmd
}

func typeLine(p *tea.Program, line string) {
	p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	p.Send(tea.KeyMsg{Type: tea.KeyEnter})
}

func waitFor[T tea.Msg](t *testing.T, events <-chan tea.Msg) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-events:
			if want, ok := msg.(T); ok {
				return want
			}
		case <-timeout:
			var zero T
			t.Fatalf("no %T within 2s; the event loop is stuck", zero)
			return zero
		}
	}
}

func TestProgram_SubmitThenLogout(t *testing.T) {
	deps, eng := newTestDeps(t, true)
	events := make(chan tea.Msg, 8)
	m := New(context.Background(), styles.NewTheme("dark"), deps)

	p := tea.NewProgram(recordingModel{Model: m, events: events},
		tea.WithInput(nil), tea.WithOutput(io.Discard))
	disconnect := connect(p, deps, eng)
	defer disconnect()

	type result struct {
		model tea.Model
		err   error
	}
	finished := make(chan result, 1)
	go func() {
		final, err := p.Run()
		finished <- result{final, err}
	}()

	p.Send(tea.WindowSizeMsg{Width: 100, Height: 40})
	typeLine(p, "where does glass go?")
	done := waitFor[SubmitDoneMsg](t, events)
	require.NoError(t, done.Err)

	typeLine(p, "/logout")
	waitFor[signedOutMsg](t, events)
	assert.False(t, deps.Session.Active())

	p.Quit()
	var res result
	select {
	case res = <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("program did not exit after quit")
	}
	require.NoError(t, res.err)

	final := res.model.(recordingModel).Model
	assert.Empty(t, final.user)
	assert.Equal(t, "Signed out.", final.status)
	require.Len(t, final.entries, 2)
	assert.Equal(t, "You asked: where does glass go?", final.entries[1].Text)
}
