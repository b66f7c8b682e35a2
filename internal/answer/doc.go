// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package answer turns backend results into the payloads the chat shows.
//
// A Payload has two parts. Plain is the narrative, revealed one rune at a
// time. Structured is a Markdown table appended whole once Plain is fully
// shown. Text replies only have Plain.
package answer
