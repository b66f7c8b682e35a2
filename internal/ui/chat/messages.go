// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/ecosort/ecosort-tui/internal/session"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

// =============================================================================
// REVEAL MESSAGES
// =============================================================================

// TypingMsg turns the typing indicator on or off.
type TypingMsg struct {
	On bool
}

// PartialMsg carries the visible prefix of the reply being revealed.
type PartialMsg struct {
	Text string
}

// =============================================================================
// TRANSCRIPT AND SESSION MESSAGES
// =============================================================================

// EntryMsg reports a transcript append or replace.
type EntryMsg struct {
	Entry transcript.Entry
}

// SessionMsg reports a session change.
type SessionMsg struct {
	Session session.Session
	Active  bool
}

// =============================================================================
// SUBMISSION MESSAGES
// =============================================================================

// SubmitDoneMsg is sent when a submission has been fully answered.
type SubmitDoneMsg struct {
	Err error
}

// signedOutMsg is sent once /logout has finished.
type signedOutMsg struct{}

// statusMsg sets the status line.
type statusMsg struct {
	text  string
	isErr bool
}
