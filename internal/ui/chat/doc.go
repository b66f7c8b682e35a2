// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the full-screen chat surface.
//
// The model renders the transcript in a scrolling viewport with an input
// line below it. Submissions run in a tea.Cmd goroutine through the
// orchestrator; reveal progress, transcript appends and session changes
// reach the model as messages sent by Run.
//
// While a submission is in flight the input is disabled and the typing
// indicator shows either the revealed prefix or a placeholder.
//
// # Slash commands
//
//	/attach <path>   attach an image to the next message
//	/detach          drop the attachment
//	/export [path]   write the transcript as Markdown or JSON
//	/logout          end the session
//	/help            toggle the help panel
//	/quit            leave
package chat
