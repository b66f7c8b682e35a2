// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat for the ecosort CLI.
//
// The default is the full-screen chat. --plain (or a non-terminal stdin or
// stdout) selects the line-based REPL, which keeps input history in the
// config directory.
//
// Slash commands in the REPL:
//   /attach <path>      Attach an image to the next message
//   /detach             Drop the attachment
//   /export [path]      Save the conversation (Markdown, or JSON for .json)
//   /logout             Sign out and leave
//   /help, /?           Show commands
//   /quit, /exit, /q    Leave

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/config"
	"github.com/ecosort/ecosort-tui/internal/export"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
	"github.com/ecosort/ecosort-tui/internal/ui/chat"
	"github.com/ecosort/ecosort-tui/internal/ui/styles"
)

const historyFileName = "chat_history"

func newChatCmd(st *rootState) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Chat with the assistant. Type a question, or attach a photo with
/attach <path>, and press Enter.

--plain uses a line-based prompt with input history instead of the full
screen. It is also used when stdin or stdout is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-based chat instead of the full screen")
	return cmd
}

func runChat(cmd *cobra.Command, st *rootState, plain bool) error {
	interactive := isTerminalReader(cmd.InOrStdin()) && isTerminalWriter(cmd.OutOrStdout())
	if plain || !interactive {
		return runPlainChat(cmd, st)
	}
	return runFullScreen(cmd, st)
}

// runFullScreen opens the Bubble Tea chat.
func runFullScreen(cmd *cobra.Command, st *rootState) error {
	app, err := st.open(st.instant)
	if err != nil {
		return err
	}
	if _, err := app.RequireSession(); err != nil {
		return err
	}
	if err := app.WatchSession(cmd.Context()); err != nil {
		app.Log.Warn("session watcher unavailable", zap.Error(err))
	}

	theme := styles.NewTheme(app.Config.UI.Theme)
	deps := chat.Deps{
		Orchestrator:   app.Orchestrator,
		Transcript:     app.Transcript,
		Session:        app.Session,
		MaxUploadBytes: app.Config.API.MaxUploadBytes,
		Markdown:       app.Config.UI.Markdown,
		WordWrap:       app.Config.UI.WordWrap,
		Logger:         app.Log,
	}
	return chat.Run(cmd.Context(), theme, deps, app.Engine)
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is one prompt-and-read source for the REPL.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, historyFileName),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads one line. Non-empty input is added to history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() error {
	c.SaveHistory()
	return c.line.Close()
}

// scanReader reads lines from a non-terminal input.
type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (r *scanReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// replSession is the state of one REPL run.
type replSession struct {
	app     *App
	out     io.Writer
	printer *answerPrinter

	attachment *orchestrator.Upload
	done       bool
}

func runPlainChat(cmd *cobra.Command, st *rootState) error {
	out := cmd.OutOrStdout()
	app, err := st.open(st.instant || !shouldStream(st.cfg, out))
	if err != nil {
		return err
	}
	if _, err := app.RequireSession(); err != nil {
		return err
	}
	if err := app.WatchSession(cmd.Context()); err != nil {
		app.Log.Warn("session watcher unavailable", zap.Error(err))
	}

	var in lineReader
	if isTerminalReader(cmd.InOrStdin()) {
		in = NewChatCLI()
	} else {
		in = &scanReader{sc: bufio.NewScanner(cmd.InOrStdin()), out: out}
	}
	defer in.Close()

	rs := &replSession{app: app, out: out, printer: newAnswerPrinter(app.Config, out)}
	app.Engine.SetObserver(rs.printer)
	defer app.Engine.SetObserver(nil)

	return rs.loop(cmd.Context(), in)
}

func (rs *replSession) loop(ctx context.Context, in lineReader) error {
	s, _ := rs.app.Session.Current()
	fmt.Fprintf(rs.out, "EcoSort chat. Signed in as %s. Type /help for commands, /quit to leave.\n", s.User.DisplayName())

	for !rs.done {
		if ctx.Err() != nil {
			return nil
		}
		input, err := in.Prompt(rs.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(rs.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)

		if strings.HasPrefix(input, "/") {
			rs.command(input)
			continue
		}
		if input == "" && rs.attachment == nil {
			continue
		}
		if err := rs.send(ctx, input); err != nil {
			return err
		}
	}
	return nil
}

func (rs *replSession) prompt() string {
	if rs.attachment != nil {
		return fmt.Sprintf("[%s] > ", rs.attachment.Name)
	}
	return "> "
}

// send submits input with the pending attachment, if any.
func (rs *replSession) send(ctx context.Context, input string) error {
	if !rs.app.Session.Active() {
		fmt.Fprintln(rs.out, "You have been signed out. Run 'ecosort login' to continue.")
		rs.done = true
		return nil
	}
	sub := orchestrator.Submission{Text: input, Image: rs.attachment}
	rs.attachment = nil

	err := rs.app.Orchestrator.Submit(ctx, sub)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, orchestrator.ErrEmptySubmission):
		fmt.Fprintln(rs.out, err)
		return nil
	default:
		return err
	}
}

// command runs one slash command.
func (rs *replSession) command(line string) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "attach":
		if arg == "" {
			fmt.Fprintln(rs.out, "Usage: /attach <path to image>")
			return
		}
		up, err := orchestrator.ReadUpload(arg, rs.app.Config.API.MaxUploadBytes)
		if err != nil {
			fmt.Fprintf(rs.out, "Cannot attach %s: %v\n", arg, err)
			return
		}
		rs.attachment = up
		fmt.Fprintf(rs.out, "Attached %s (%s). Press Enter to send, or type a question first.\n",
			up.Name, humanize.Bytes(uint64(len(up.Data))))

	case "detach":
		rs.attachment = nil
		fmt.Fprintln(rs.out, "Attachment removed.")

	case "export":
		user := ""
		if s, ok := rs.app.Session.Current(); ok {
			user = s.User.DisplayName()
		}
		doc := export.NewDocument(rs.app.Transcript.Entries(), user)
		path, err := export.WriteFile(arg, doc, nil)
		if err != nil {
			fmt.Fprintf(rs.out, "Export failed: %v\n", err)
			return
		}
		rs.app.Log.Info("transcript exported", zap.String("path", path), zap.Int("entries", len(doc.Entries)))
		fmt.Fprintf(rs.out, "Exported to %s\n", path)

	case "logout":
		rs.app.Session.Logout()
		fmt.Fprintln(rs.out, "Signed out.")
		rs.done = true

	case "help", "?":
		printChatHelp(rs.out)

	case "quit", "exit", "q":
		rs.done = true

	default:
		fmt.Fprintf(rs.out, "Unknown command /%s. Type /help for commands.\n", name)
	}
}

func printChatHelp(w io.Writer) {
	commands := [][2]string{
		{"/attach <path>", "Attach an image to the next message"},
		{"/detach", "Drop the attachment"},
		{"/export [path]", "Save the conversation (Markdown, or JSON for .json)"},
		{"/logout", "Sign out and leave"},
		{"/help, /?", "Show this help"},
		{"/quit, /exit, /q", "Leave"},
	}
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-18s %s\n", c[0], c[1])
	}
}
