// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Answer output for the line-based commands.
//
// On a terminal with markdown off the reveal engine streams the answer
// rune by rune. Otherwise the typing placeholder is shown until the
// answer commits, and the committed text is printed once, rendered with
// glamour when markdown is on.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/config"
	"github.com/ecosort/ecosort-tui/internal/reveal"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

const (
	userColor = "#0EA5E9"
	botColor  = "#22C55E"
)

// shouldStream reports whether answers are revealed live on out.
func shouldStream(cfg *config.Config, out io.Writer) bool {
	return isTerminalWriter(out) && !cfg.UI.Markdown
}

// glamourStyle picks the glamour standard style for out.
func glamourStyle(cfg *config.Config, out io.Writer) string {
	if !isTerminalWriter(out) || GetColorProfile() == termenv.Ascii {
		return "notty"
	}
	switch strings.ToLower(cfg.UI.Theme) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// =============================================================================
// ANSWER PRINTER
// =============================================================================

// answerPrinter writes bot answers to out. It implements reveal.Observer.
type answerPrinter struct {
	out      *termenv.Output
	markdown bool
	stream   bool
	tty      bool
	md       *glamour.TermRenderer

	shown       int
	placeholder bool
}

func newAnswerPrinter(cfg *config.Config, w io.Writer) *answerPrinter {
	profile := termenv.Ascii
	tty := isTerminalWriter(w)
	if tty {
		profile = GetColorProfile()
	}
	p := &answerPrinter{
		out:      termenv.NewOutput(w, termenv.WithProfile(profile)),
		markdown: cfg.UI.Markdown,
		stream:   shouldStream(cfg, w),
		tty:      tty,
	}
	if p.markdown {
		wrap := cfg.UI.WordWrap
		if wrap <= 0 {
			wrap = GetTerminalWidth()
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(glamourStyle(cfg, w)),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			p.md = r
		}
	}
	return p
}

func (p *answerPrinter) label(name, color string) string {
	return p.out.String(name).Foreground(p.out.Color(color)).Bold().String()
}

// Typing implements reveal.Observer.
func (p *answerPrinter) Typing(on bool) {
	if !p.tty {
		return
	}
	if on {
		p.shown = 0
		p.placeholder = true
		fmt.Fprint(p.out, answer.TypingPlaceholder)
		return
	}
	p.clearPlaceholder()
}

// Partial implements reveal.Observer.
func (p *answerPrinter) Partial(text string) {
	if !p.stream || text == "" {
		return
	}
	if p.shown == 0 {
		p.clearPlaceholder()
		fmt.Fprint(p.out, p.label("EcoSort", botColor)+": ")
	}
	if len(text) > p.shown {
		fmt.Fprint(p.out, text[p.shown:])
		p.shown = len(text)
	}
}

// Committed implements reveal.Observer. After a streamed reveal only the
// unrevealed tail, the structured part, is left to print.
func (p *answerPrinter) Committed(e transcript.Entry) {
	if p.stream && p.shown > 0 {
		if p.shown < len(e.Text) {
			fmt.Fprint(p.out, strings.TrimRight(e.Text[p.shown:], "\n"))
		}
		fmt.Fprintln(p.out)
		p.shown = 0
		return
	}
	p.clearPlaceholder()
	fmt.Fprintln(p.out, p.label("EcoSort", botColor)+":")
	fmt.Fprintln(p.out, p.render(e.Text))
}

func (p *answerPrinter) render(text string) string {
	if p.md == nil {
		return text
	}
	out, err := p.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (p *answerPrinter) clearPlaceholder() {
	if !p.placeholder {
		return
	}
	p.placeholder = false
	p.out.ClearLine()
	fmt.Fprint(p.out, "\r")
}

var _ reveal.Observer = (*answerPrinter)(nil)
