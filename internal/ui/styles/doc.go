// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the EcoSort terminal UI.
//
// Colors are lipgloss AdaptiveColor values so the same palette works on
// dark and light terminals. NewTheme detects the background unless the
// configured mode forces one.
//
// # Palette
//
//   - Leaf: brand accent, bot replies, prompt
//   - Sky: user messages, links
//   - Amber: warnings, the typing indicator
//   - Rose: errors
//
// # Usage
//
//	theme := styles.NewTheme("auto")
//	fmt.Println(theme.Header.Render("EcoSort"))
package styles
