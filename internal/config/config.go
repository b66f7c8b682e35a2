// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ecosort/ecosort-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure for ecosort.
type Config struct {
	// Version of the config file format
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Reveal  RevealConfig  `toml:"reveal" json:"reveal"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL is the classification backend root, including the /api prefix.
	BaseURL string `toml:"base_url" json:"base_url"`

	// RequestTimeoutSecs bounds JSON requests (login, text queries, feedback).
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`

	// UploadTimeoutSecs bounds image uploads to the classifier.
	UploadTimeoutSecs int `toml:"upload_timeout_secs" json:"upload_timeout_secs"`

	// MaxUploadBytes is the largest image the client will send.
	MaxUploadBytes int64 `toml:"max_upload_bytes" json:"max_upload_bytes"`

	// Client-side rate limit applied to every outgoing request.
	RateLimitPerSec float64 `toml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	RateBurst       int     `toml:"rate_burst" json:"rate_burst"`
}

// StorageConfig controls where the session (user, token) is persisted.
type StorageConfig struct {
	// Backend is "file" (JSON document) or "sqlite".
	Backend string `toml:"backend" json:"backend"`

	// Dir holds the session store. "~" is expanded.
	Dir string `toml:"dir" json:"dir"`

	// PassphraseEnv names an environment variable. When that variable is
	// set the stored token is sealed with a key derived from its value.
	PassphraseEnv string `toml:"passphrase_env" json:"passphrase_env"`

	// Watch reloads the session when another process changes the store.
	Watch bool `toml:"watch" json:"watch"`
}

// RevealConfig controls the typing effect.
type RevealConfig struct {
	TickMs int `toml:"tick_ms" json:"tick_ms"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Markdown renders bot answers with glamour. Off prints raw markup.
	Markdown bool   `toml:"markdown" json:"markdown"`
	WordWrap int    `toml:"word_wrap" json:"word_wrap"`
	Theme    string `toml:"theme" json:"theme"`
}

// LogConfig contains structured logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// CurrentVersion is the config format version written by SaveTOML.
	CurrentVersion = "1"

	DefaultBaseURL        = "http://127.0.0.1:8000/api"
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)

// Default returns a Config with every field at its default value.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:            DefaultBaseURL,
			RequestTimeoutSecs: 30,
			UploadTimeoutSecs:  60,
			MaxUploadBytes:     DefaultMaxUploadBytes,
			RateLimitPerSec:    5,
			RateBurst:          10,
		},
		Storage: StorageConfig{
			Backend:       "file",
			Dir:           "~/.ecosort",
			PassphraseEnv: "ECOSORT_PASSPHRASE",
			Watch:         true,
		},
		Reveal: RevealConfig{
			TickMs: 4,
		},
		UI: UIConfig{
			Markdown: true,
			WordWrap: 80,
			Theme:    "dark",
		},
		Log: LogConfig{
			Level: "info",
			File:  "~/.ecosort/ecosort.log",
		},
	}
}

// RequestTimeout returns the JSON request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSecs) * time.Second
}

// UploadTimeout returns the image upload timeout as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.API.UploadTimeoutSecs) * time.Second
}

// TickInterval returns the reveal tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Reveal.TickMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ecosort configuration directory path.
// ECOSORT_HOME overrides the default of ~/.ecosort.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ECOSORT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ecosort"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StorageDir returns Storage.Dir with "~" expanded. When the configured
// directory is the default and ECOSORT_HOME is set, the override wins.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir == Default().Storage.Dir {
		if dir := os.Getenv("ECOSORT_HOME"); dir != "" {
			return dir, nil
		}
	}
	return util.ExpandHome(c.Storage.Dir)
}

// LogPath returns Log.File with "~" expanded.
func (c *Config) LogPath() (string, error) {
	if c.Log.File == "" {
		return "", nil
	}
	if c.Log.File == Default().Log.File {
		if dir := os.Getenv("ECOSORT_HOME"); dir != "" {
			return filepath.Join(dir, "ecosort.log"), nil
		}
	}
	return util.ExpandHome(c.Log.File)
}

// ensureSecurePermissions tightens config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// When a file exists but cannot be decoded, Load returns the defaults
// together with the decode error so callers can warn and continue.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if loadErr == nil {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				cfg, err := LoadFromPath(jsonPath)
				if err == nil {
					return cfg, nil
				}
				loadErr = err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// Fields missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# ecosort configuration file\n")
	buf.WriteString("# Generated by ecosort - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration and returns ValidateErrors when any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL == "" {
		errs = append(errs, ValidationError{"api.base_url", "must not be empty"})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", fmt.Sprintf("invalid URL %q (must be http or https)", c.API.BaseURL)})
	}
	if c.API.RequestTimeoutSecs <= 0 || c.API.RequestTimeoutSecs > 600 {
		errs = append(errs, ValidationError{"api.request_timeout_secs", "must be between 1 and 600"})
	}
	if c.API.UploadTimeoutSecs <= 0 || c.API.UploadTimeoutSecs > 600 {
		errs = append(errs, ValidationError{"api.upload_timeout_secs", "must be between 1 and 600"})
	}
	if c.API.MaxUploadBytes <= 0 {
		errs = append(errs, ValidationError{"api.max_upload_bytes", "must be positive"})
	}
	if c.API.RateLimitPerSec < 0 {
		errs = append(errs, ValidationError{"api.rate_limit_per_sec", "must not be negative"})
	}
	if c.API.RateBurst < 0 {
		errs = append(errs, ValidationError{"api.rate_burst", "must not be negative"})
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("unknown backend %q (want file or sqlite)", c.Storage.Backend)})
	}

	if c.Reveal.TickMs <= 0 || c.Reveal.TickMs > 1000 {
		errs = append(errs, ValidationError{"reveal.tick_ms", "must be between 1 and 1000"})
	}

	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{"ui.word_wrap", "must not be negative"})
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("unknown theme %q", c.UI.Theme)})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-valued fields that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestTimeoutSecs == 0 {
		c.API.RequestTimeoutSecs = d.API.RequestTimeoutSecs
	}
	if c.API.UploadTimeoutSecs == 0 {
		c.API.UploadTimeoutSecs = d.API.UploadTimeoutSecs
	}
	if c.API.MaxUploadBytes == 0 {
		c.API.MaxUploadBytes = d.API.MaxUploadBytes
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Reveal.TickMs == 0 {
		c.Reveal.TickMs = d.Reveal.TickMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - ECOSORT_API_URL: overrides api.base_url
//   - ECOSORT_STORAGE_BACKEND: overrides storage.backend
//   - ECOSORT_REVEAL_TICK_MS: overrides reveal.tick_ms
//   - ECOSORT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ECOSORT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ECOSORT_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ECOSORT_REVEAL_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Reveal.TickMs = ms
		}
	}
	if v := os.Getenv("ECOSORT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.request_timeout_secs",
		"api.upload_timeout_secs",
		"api.max_upload_bytes",
		"api.rate_limit_per_sec",
		"api.rate_burst",
		"storage.backend",
		"storage.dir",
		"storage.passphrase_env",
		"storage.watch",
		"reveal.tick_ms",
		"ui.markdown",
		"ui.word_wrap",
		"ui.theme",
		"log.level",
		"log.file",
	}
}

// Clone returns a copy of the configuration. Config holds only value
// fields, so a struct copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
