// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/transcript"
	"github.com/ecosort/ecosort-tui/internal/util"
)

// ErrNotImage is returned by ReadUpload for files that are not images.
var ErrNotImage = errors.New("file is not an image")

// ErrTooLarge is returned by ReadUpload for files over the size limit.
var ErrTooLarge = errors.New("image exceeds the upload size limit")

// Upload is an image the user attached.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// Ref returns a transcript reference to the upload. The bytes stay here.
func (u *Upload) Ref() *transcript.ImageRef {
	return transcript.NewImageRef(u.Name, u.MIME, int64(len(u.Data)))
}

func (u *Upload) backendImage() backend.Image {
	return backend.Image{Name: u.Name, ContentType: u.MIME, Data: u.Data}
}

// ReadUpload loads an image from disk. maxBytes of zero or less means no
// limit. The MIME type comes from the extension, falling back to content
// sniffing.
func ReadUpload(path string, maxBytes int64) (*Upload, error) {
	path, err := util.ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	r := io.Reader(f)
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, filepath.Base(path), maxBytes)
	}

	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if !strings.HasPrefix(mt, "image/") {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotImage, filepath.Base(path), mt)
	}
	return &Upload{Name: filepath.Base(path), MIME: mt, Data: data}, nil
}
