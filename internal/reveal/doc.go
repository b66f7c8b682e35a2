// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal shows a bot reply one rune at a time and then commits it
// to the transcript.
//
// Each payload moves through Idle, Revealing and Committed. While
// revealing, every tick of the driver appends one rune of the plain part
// to a visible buffer and publishes it. When the buffer is complete the
// next tick commits a single transcript entry holding the plain part
// followed by the structured part. The structured part is never revealed
// piecemeal.
//
// The driver is a Ticker so tests and non-interactive output can step it
// directly:
//
//	eng := reveal.New(tr, reveal.Options{NewTicker: reveal.Instant})
//	entry, err := eng.Reveal(ctx, payload)
package reveal
