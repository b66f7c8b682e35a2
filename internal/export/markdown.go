// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ecosort/ecosort-tui/internal/transcript"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// frontMatter is the YAML header of an exported file.
type frontMatter struct {
	Title     string    `yaml:"title"`
	User      string    `yaml:"user,omitempty"`
	Entries   int       `yaml:"entries"`
	Exported  time.Time `yaml:"exported"`
	Generator string    `yaml:"generator"`
}

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a document to Markdown.
func (e *MarkdownExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if len(doc.Entries) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		header, err := yaml.Marshal(frontMatter{
			Title:     doc.Title,
			User:      doc.User,
			Entries:   len(doc.Entries),
			Exported:  doc.Exported.Truncate(time.Second),
			Generator: "ecosort",
		})
		if err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(doc.Title))

	if e.options.IncludeMetadata {
		first, last := doc.Entries[0], doc.Entries[len(doc.Entries)-1]
		sb.WriteString("## Session Information\n\n")
		if doc.User != "" {
			fmt.Fprintf(&sb, "- **User**: %s\n", escapeMarkdown(doc.User))
		}
		fmt.Fprintf(&sb, "- **Started**: %s\n", formatTimestamp(first.At))
		fmt.Fprintf(&sb, "- **Last Entry**: %s\n", formatTimestamp(last.At))
		fmt.Fprintf(&sb, "- **Entries**: %d\n", len(doc.Entries))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, entry := range doc.Entries {
		label := authorLabel(entry.Author)
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(entry.At))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		if entry.Image != nil {
			sb.WriteString(imageLabel(entry.Image))
			sb.WriteString("\n\n")
		}
		if text := strings.TrimSpace(entry.Text); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}

		if i < len(doc.Entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from EcoSort on %s*\n",
		doc.Exported.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func authorLabel(a transcript.Author) string {
	switch a {
	case transcript.User:
		return "[You]"
	case transcript.Bot:
		return "[EcoSort]"
	case "":
		return "Unknown"
	default:
		return "[" + string(a) + "]"
	}
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break headings and lists.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
