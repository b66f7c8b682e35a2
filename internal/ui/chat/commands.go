// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/export"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand executes one slash command line.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "attach":
		if arg == "" {
			m.setStatus("Usage: /attach <path to image>", true)
			return m, nil
		}
		up, err := orchestrator.ReadUpload(arg, m.deps.MaxUploadBytes)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.attachment = up
		m.setStatus(fmt.Sprintf("Attached %s (%s). Press Enter to send.", up.Name, humanize.Bytes(uint64(len(up.Data)))), false)

	case "detach":
		m.attachment = nil
		m.setStatus("Attachment removed.", false)

	case "export":
		doc := export.NewDocument(m.entries, m.user)
		path, err := export.WriteFile(arg, doc, nil)
		if err != nil {
			m.setStatus("Export failed: "+err.Error(), true)
			return m, nil
		}
		m.log.Info("transcript exported", zap.String("path", path), zap.Int("entries", len(doc.Entries)))
		m.setStatus("Exported to "+path, false)

	case "logout":
		if m.deps.Session == nil || !m.deps.Session.Active() {
			m.setStatus("Not signed in.", true)
			return m, nil
		}
		// Logout notifies session observers, which post back into the
		// program, so it must not run on the event loop.
		store := m.deps.Session
		m.setStatus("Signing out...", false)
		return m, func() tea.Msg {
			store.Logout()
			return signedOutMsg{}
		}

	case "help", "?":
		m.showHelp = !m.showHelp

	case "quit", "exit", "q":
		m.cancel.clear()
		return m, tea.Quit

	default:
		m.setStatus(fmt.Sprintf("Unknown command /%s. Type /help for commands.", name), true)
	}
	return m, nil
}

// commandHelp lists the slash commands for the help panel.
var commandHelp = [][2]string{
	{"/attach <path>", "attach an image to the next message"},
	{"/detach", "drop the attachment"},
	{"/export [path]", "save the chat as Markdown (.json for JSON)"},
	{"/logout", "sign out"},
	{"/help", "toggle this panel"},
	{"/quit", "leave"},
}
