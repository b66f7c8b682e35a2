// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current chat transcript to a file.
//
// Markdown is the default format and keeps bot replies, including their
// method tables, exactly as shown. JSON is chosen when the target path ends
// in .json. Exports are one-way dumps; nothing reads them back.
//
// # Usage
//
//	doc := export.NewDocument(tr.Entries(), "ada@example.com")
//	path, err := export.WriteFile("chat.md", doc, nil)
package export
