// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question and classification commands.
//
// Command: ask <question>
// Short:   Ask a recycling question
//
// Command: classify <image> [--text question]
// Short:   Classify a photo of waste
//
// Examples:
//   ecosort ask "Can pizza boxes be recycled?"
//   ecosort classify bottle.jpg
//   ecosort classify bottle.jpg --text "is the cap recyclable too?"

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecosort/ecosort-tui/internal/orchestrator"
)

func newAskCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a recycling question",
		Long: `Send one question to the assistant and print the answer.

The answer is rendered as Markdown unless ui.markdown is false, in which
case it is typed out as it arrives.`,
		Example: `  ecosort ask "Can pizza boxes be recycled?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitOnce(cmd, st, orchestrator.Submission{Text: strings.Join(args, " ")})
		},
	}
}

func newClassifyCmd(st *rootState) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a photo of waste",
		Long: `Upload a photo to the classifier and print the waste type, recycling
steps and decomposition methods.

With --text the question is answered first, then the photo.`,
		Example: `  ecosort classify bottle.jpg
  ecosort classify bottle.jpg --text "is the cap recyclable too?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitOnce(cmd, st, orchestrator.Submission{Text: text, Image: &orchestrator.Upload{Name: args[0]}})
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "question to send with the image")
	return cmd
}

// submitOnce runs one submission and prints the answer.
// A Submission whose Image only carries a path is read from disk first.
func submitOnce(cmd *cobra.Command, st *rootState, sub orchestrator.Submission) error {
	out := cmd.OutOrStdout()
	app, err := st.open(st.instant || !shouldStream(st.cfg, out))
	if err != nil {
		return err
	}
	if _, err := app.RequireSession(); err != nil {
		return err
	}

	if sub.Image != nil {
		up, err := orchestrator.ReadUpload(sub.Image.Name, app.Config.API.MaxUploadBytes)
		if err != nil {
			return NewCommandError("classify", "read", sub.Image.Name, err)
		}
		sub.Image = up
	}

	p := newAnswerPrinter(app.Config, out)
	app.Engine.SetObserver(p)
	defer app.Engine.SetObserver(nil)

	return app.Orchestrator.Submit(cmd.Context(), sub)
}
