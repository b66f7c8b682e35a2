// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ecosort command line.
//
// Running ecosort with no subcommand opens the chat screen. The one-shot
// commands share the same wiring (see App) so a question asked with
// "ecosort ask" goes through the same orchestrator, reveal engine and
// session store as the chat screen.
//
// # Commands Overview
//
// Chat:
//   - (default): full-screen chat
//   - chat --plain: line-based chat with input history
//   - ask: one text question
//   - classify: one image, with optional text
//
// Account:
//   - login, login google, login microsoft
//   - register, verify
//   - forgot-password, reset-password
//   - logout, whoami, token refresh
//
// Other:
//   - feedback submit|list|delete
//   - config show|get|set|path
//   - version
package cli
