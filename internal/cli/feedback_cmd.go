// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// feedback_cmd.go - Rate the assistant and manage submitted feedback.
//
// Commands:
//   feedback submit --rating N [text]   Submit a 1-5 rating with a comment
//   feedback list [--all]               List your feedback (--all: everyone's, admin only)
//   feedback delete <id>                Delete one feedback entry

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/util"
)

// feedbackTextWidth bounds the comment column in list output.
const feedbackTextWidth = 48

func newFeedbackCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Rate the assistant and manage your feedback",
	}
	cmd.AddCommand(newFeedbackSubmitCmd(st), newFeedbackListCmd(st), newFeedbackDeleteCmd(st))
	return cmd
}

func newFeedbackSubmitCmd(st *rootState) *cobra.Command {
	var rating float64
	cmd := &cobra.Command{
		Use:   "submit [text]",
		Short: "Submit a rating from 1 to 5 with a comment",
		Example: `  ecosort feedback submit --rating 5 "Very helpful for sorting plastics"
  ecosort feedback submit -r 3.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if err := backend.ValidateFeedback(rating, text); err != nil {
				return err
			}
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			fb, err := app.API.SubmitFeedback(cmd.Context(), rating, text)
			if err != nil {
				return NewCommandError("feedback", "submit", "request failed", err)
			}
			out := cmd.OutOrStdout()
			if fb.ID != "" {
				fmt.Fprintf(out, "Thanks for your feedback (id %s).\n", fb.ID)
			} else {
				fmt.Fprintln(out, "Thanks for your feedback.")
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&rating, "rating", "r", 0, "rating from 1 to 5")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func newFeedbackListCmd(st *rootState) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if _, err := app.RequireSession(); err != nil {
				return err
			}

			var items []backend.Feedback
			if all {
				items, err = app.API.ListAllFeedback(cmd.Context())
			} else {
				items, err = app.API.ListFeedback(cmd.Context())
			}
			if err != nil {
				return NewCommandError("feedback", "list", "request failed", err)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No feedback yet.")
				return nil
			}
			fmt.Fprintln(out, feedbackTable(items, all))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list feedback from every user (admin only)")
	return cmd
}

func newFeedbackDeleteCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one feedback entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			if err := app.API.DeleteFeedback(cmd.Context(), args[0]); err != nil {
				return NewCommandError("feedback", "delete", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted feedback %s.\n", args[0])
			return nil
		},
	}
}

// feedbackTable renders items as a bordered table.
func feedbackTable(items []backend.Feedback, withUser bool) string {
	headers := []string{"ID", "Rating", "Date", "Feedback"}
	if withUser {
		headers = append(headers[:1], append([]string{"User"}, headers[1:]...)...)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, fb := range items {
		row := []string{
			fb.ID,
			strconv.FormatFloat(fb.Rating, 'f', -1, 64),
			feedbackDate(fb.Timestamp),
			util.TruncateWidth(strings.Join(strings.Fields(fb.Text), " "), feedbackTextWidth),
		}
		if withUser {
			user := fb.UserName
			if user == "" {
				user = fb.UserID
			}
			row = append(row[:1], append([]string{user}, row[1:]...)...)
		}
		t.Row(row...)
	}
	return t.String()
}

// feedbackDate trims the backend timestamp to its date and minute.
func feedbackDate(ts string) string {
	ts = strings.Replace(ts, "T", " ", 1)
	if len(ts) > 16 {
		return ts[:16]
	}
	return ts
}
