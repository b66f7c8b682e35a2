// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ecosort/ecosort-tui/internal/answer"
	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/ui/styles"
	"github.com/ecosort/ecosort-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	parts := []string{m.renderHeader()}
	if m.showHelp {
		parts = append(parts, m.renderHelp())
	} else {
		parts = append(parts, m.viewport.View())
	}
	parts = append(parts,
		m.renderAttachment(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatus(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("♻ EcoSort")
	user := "not signed in"
	if m.user != "" {
		user = m.user
	}
	right := m.theme.HeaderUser.Render(util.TruncateWidth(user, max(m.width/2, 8)))
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right)-2, 1)
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) renderAttachment() string {
	if m.attachment == nil {
		return ""
	}
	label := fmt.Sprintf("📎 %s (%s)", m.attachment.Name, humanize.Bytes(uint64(len(m.attachment.Data))))
	return m.theme.Attachment.Render(util.TruncateWidth(label, max(m.width-2, 10)))
}

func (m Model) renderStatus() string {
	var line string
	switch {
	case m.status != "" && m.statusErr:
		line = m.theme.Error(m.status)
	case m.status != "":
		line = m.theme.InfoStyle.Render(m.status)
	default:
		var hints []string
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		line = strings.Join(hints, "  ")
	}
	return m.theme.StatusBar.Width(m.width).Render(line)
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Commands") + "\n\n")
	for _, c := range commandHelp {
		fmt.Fprintf(&sb, "  %-16s %s\n", m.theme.ShortcutKey.Render(c[0]), m.theme.ShortcutDesc.Render(c[1]))
	}
	sb.WriteString("\n" + m.theme.HeaderTitle.Render("Keys") + "\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "  %-16s %s\n", m.theme.ShortcutKey.Render(h.Key), m.theme.ShortcutDesc.Render(h.Desc))
		}
	}
	return lipgloss.NewStyle().Height(m.viewport.Height).Render(sb.String())
}

// renderTranscript renders every committed entry plus the live reply.
func (m Model) renderTranscript() string {
	var sb strings.Builder
	if len(m.entries) == 0 && !m.typing {
		sb.WriteString(m.theme.Muted.Render("Ask how to dispose of something, or attach a photo with /attach <path>."))
		sb.WriteString("\n")
	}
	for _, e := range m.entries {
		sb.WriteString(m.render.entry(e))
		sb.WriteString("\n")
	}
	if m.typing {
		sb.WriteString(m.theme.BotLabel.Render("EcoSort") + "\n")
		if m.partial == "" {
			sb.WriteString(m.spinner.View() + " " + m.theme.Typing.Render(answer.TypingPlaceholder))
		} else {
			sb.WriteString(m.render.plain(m.partial))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// ENTRY RENDERING
// =============================================================================

// entryRenderer caches rendered entries by sequence number. Committed
// entries rarely change so only the live reply is rendered per tick.
type entryRenderer struct {
	theme    *styles.Theme
	markdown bool
	maxWrap  int
	width    int
	md       *glamour.TermRenderer
	cache    map[uint64]cachedEntry
}

type cachedEntry struct {
	text string
	out  string
}

func newEntryRenderer(theme *styles.Theme, markdown bool, wrap int) *entryRenderer {
	if wrap <= 0 {
		wrap = 80
	}
	r := &entryRenderer{theme: theme, markdown: markdown, maxWrap: wrap, cache: make(map[uint64]cachedEntry)}
	r.resize(wrap + 4)
	return r
}

func (r *entryRenderer) wrapWidth() int {
	return max(min(r.width-4, r.maxWrap), 20)
}

// resize rebuilds the Markdown renderer for a new terminal width.
func (r *entryRenderer) resize(width int) {
	if width == r.width && (r.md != nil || !r.markdown) {
		return
	}
	r.width = width
	r.cache = make(map[uint64]cachedEntry)
	r.md = nil
	if !r.markdown {
		return
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(r.wrapWidth()),
	)
	if err == nil {
		r.md = md
	}
}

func (r *entryRenderer) entry(e transcript.Entry) string {
	if c, ok := r.cache[e.Seq]; ok && c.text == e.Text {
		return c.out
	}
	var out string
	if e.IsBot() {
		out = r.theme.BotLabel.Render("EcoSort") + "\n" + r.markdownOrPlain(e.Text)
	} else {
		var body []string
		if e.Image != nil {
			body = append(body, r.theme.Attachment.Render(
				fmt.Sprintf("📎 %s (%s)", e.Image.Name, humanize.Bytes(uint64(e.Image.Size)))))
		}
		if e.Text != "" {
			body = append(body, r.plain(e.Text))
		}
		out = r.theme.UserLabel.Render("You") + "\n" +
			r.theme.UserBubble.Render(strings.Join(body, "\n"))
	}
	r.cache[e.Seq] = cachedEntry{text: e.Text, out: out}
	return out
}

func (r *entryRenderer) markdownOrPlain(text string) string {
	if r.md != nil {
		if out, err := r.md.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return r.plain(text)
}

// plain wraps text without Markdown processing.
func (r *entryRenderer) plain(text string) string {
	return lipgloss.NewStyle().Width(r.wrapWidth()).Render(text)
}
