// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the ordered, in-memory list of chat entries for
// one process.
//
// Entries are addressed by a sequence number assigned at append time.
// Sequence numbers start at 1 and strictly increase. A committed entry is
// never changed, except the most recent bot entry, which ReplaceLast may
// rewrite.
//
// # Usage
//
//	t := transcript.New()
//	e := t.Append(transcript.Entry{Author: transcript.User, Text: "hi"})
//	unsub := t.Subscribe(func(e transcript.Entry) { ... })
//	defer unsub()
package transcript
