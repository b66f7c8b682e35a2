// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ecosort/ecosort-tui/internal/backend"
)

// Fixed replies shown in place of a backend answer.
const (
	NoResponse         = "❌ No response received."
	TextQueryFailed    = "❌ Failed to process text query."
	NoClassification   = "Classification failed. No data received."
	ClassifyFailed     = "Failed to classify waste."
	TypingPlaceholder  = "⏳ Generating response..."
	NotAvailable       = backend.NotAvailable
	methodTableHeading = "| Method | Time | Process | Impact | Recyclability | Factors |"
	methodTableRule    = "| --- | --- | --- | --- | --- | --- |"
)

// Payload is what one bot reply shows.
type Payload struct {
	Plain      string
	Structured string
}

// Text returns the full committed text: Plain then Structured.
func (p Payload) Text() string {
	return p.Plain + p.Structured
}

// Fallback wraps a fixed reply.
func Fallback(msg string) Payload {
	return Payload{Plain: msg}
}

// FromText builds the reply for a text query. Only an empty narrative
// falls back; whitespace is shown as sent.
func FromText(narrative string) Payload {
	if narrative == "" {
		return Fallback(NoResponse)
	}
	return Payload{Plain: narrative}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// FromClassification renders the first result of a classification. Zero
// results give the no-data fallback.
func FromClassification(res backend.ClassifyResult) Payload {
	if len(res.Classification) == 0 {
		return Fallback(NoClassification)
	}
	cl := res.Classification[0]
	return Payload{
		Plain:      narrative(cl),
		Structured: MethodTable(cl.Methods),
	}
}

func narrative(cl backend.Classification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**🗑 Waste Name:** %s\n", cl.WasteName)
	fmt.Fprintf(&sb, "**📂 Category:** %s\n", cl.Category)
	fmt.Fprintf(&sb, "**🎯 Confidence:** %.2f%%\n", cl.Confidence*100)
	fmt.Fprintf(&sb, "**⚖ Estimated Weight:** %sg\n\n", strconv.FormatFloat(cl.EstimatedWeight, 'f', -1, 64))

	sb.WriteString("**♻ Recycling Instructions:**\n\n")
	if !cl.InstructionsAvailable {
		sb.WriteString(NotAvailable + "\n\n")
	}
	for _, step := range cl.Instructions {
		fmt.Fprintf(&sb, "**Step %d: %s**\n%s\n\n", step.Step, step.Title, step.Description)
	}

	sb.WriteString("**🕰 Decomposition Methods:**\n\n")
	if len(cl.Methods) == 0 {
		sb.WriteString(NotAvailable + "\n")
	}
	return sb.String()
}

// MethodTable renders decomposition methods as a GFM table, one row per
// method in the given order. An empty list renders nothing.
func MethodTable(methods []backend.Method) string {
	if len(methods) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(methodTableHeading + "\n")
	sb.WriteString(methodTableRule + "\n")
	for _, m := range methods {
		cells := []string{Capitalize(m.Name), m.Time, m.Process, m.Impact, m.Recyclability, m.Factors}
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" " + escapeCell(c) + " |")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

var cellEscaper = strings.NewReplacer(
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// escapeCell keeps a value inside its table cell. Line breaks fold to
// spaces since terminal renderers drop inline HTML.
func escapeCell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}
