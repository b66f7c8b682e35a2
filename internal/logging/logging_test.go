// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ecosort/ecosort-tui/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.File = filepath.Join(dir, "logs", "ecosort.log")

	logger, err := New(cfg, Options{})
	require.NoError(t, err)

	logger.Info("session restored")
	logger.Debug("suppressed at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session restored"`)
	assert.Contains(t, string(data), `"logger":"ecosort"`)
	assert.False(t, strings.Contains(string(data), "suppressed"))
}

func TestNew_NilConfigAndNoOutputs(t *testing.T) {
	logger, err := New(nil, Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)

	cfg := config.Default()
	cfg.Log.File = ""
	logger, err = New(cfg, Options{})
	require.NoError(t, err)
	logger.Info("dropped")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
