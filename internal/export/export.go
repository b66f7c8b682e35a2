// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/util"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("transcript is empty")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a document in one format.
type Exporter interface {
	Export(doc *Document) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Document is a transcript snapshot plus export metadata.
type Document struct {
	Title    string             `json:"title"`
	User     string             `json:"user,omitempty"`
	Exported time.Time          `json:"exported"`
	Entries  []transcript.Entry `json:"entries"`
}

// NewDocument snapshots entries for export. user may be empty.
func NewDocument(entries []transcript.Entry, user string) *Document {
	return &Document{
		Title:    "EcoSort Chat",
		User:     user,
		Exported: time.Now(),
		Entries:  entries,
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds a front matter block and a session summary.
	IncludeMetadata bool

	// IncludeTimestamps adds the time to every entry heading.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForPath picks an exporter from the file extension.
func ForPath(path string, opts *Options) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONExporter(opts)
	}
	return NewMarkdownExporter(opts)
}

// DefaultFilename names an export written at t.
func DefaultFilename(t time.Time) string {
	return fmt.Sprintf("ecosort_chat_%s.md", t.Format("20060102_150405"))
}

// WriteFile renders doc and writes it to path, returning the path written.
// An empty path uses DefaultFilename in the working directory; a path with
// no extension gets ".md".
func WriteFile(path string, doc *Document, opts *Options) (string, error) {
	if doc == nil || len(doc.Entries) == 0 {
		return "", ErrEmpty
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	path, err := util.ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	if path == "" {
		path = DefaultFilename(doc.Exported)
	}
	exporter := ForPath(path, opts)
	if filepath.Ext(path) == "" {
		path += exporter.FileExtension()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// imageLabel describes an attachment on one line.
func imageLabel(img *transcript.ImageRef) string {
	if img == nil {
		return ""
	}
	return fmt.Sprintf("📎 %s (%s, %s)", img.Name, img.MIME, humanize.Bytes(uint64(img.Size)))
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
