// Package config loads mcad settings from ~/.mcad/config.json and an
// optional project-local .mcad/config.json found above the working
// directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileName is the settings file looked up in each config directory.
const FileName = "config.json"

// Defaults applied when no config file sets a value.
const (
	DefaultCurveSamples          = 24
	DefaultSolidName             = "exported_model"
	DefaultDocumentKey           = "working"
	DefaultConvertTimeoutSeconds = 60
)

// Config holds the user-tunable settings. Zero values mean "not set" so that
// layers can be merged.
type Config struct {
	// Straight segments per quadratic curve when flattening freeform outlines.
	CurveSamples int `json:"curve_samples"`
	// Name written on the STL solid/endsolid lines.
	SolidName string `json:"solid_name,omitempty"`
	// Row of the documents table used as the working document. Separate
	// keys give separate editing contexts.
	DocumentKey string `json:"document_key,omitempty"`
	// Recorded on saved projects; "mine" listings filter on it.
	Owner string `json:"owner,omitempty"`

	// Base URL of the STL to STEP conversion service. Empty disables
	// step_convert and `mcad export step`.
	ConvertURL            string `json:"convert_url,omitempty"`
	ConvertTimeoutSeconds int    `json:"convert_timeout_seconds,omitempty"`

	// Extra directories that import and export may touch besides
	// ~/.mcad/exports. Relative entries are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`
	// Lifts the directory allowlist. Extension and symlink checks remain.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// Connection pool limits; 0 leaves the database/sql default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// MCP tools to leave unregistered, by name or by group
	// ("shape", "document", "mesh", "step", "project").
	DisabledTools []string `json:"disabled_tools,omitempty"`
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		CurveSamples:          DefaultCurveSamples,
		SolidName:             DefaultSolidName,
		DocumentKey:           DefaultDocumentKey,
		ConvertTimeoutSeconds: DefaultConvertTimeoutSeconds,
	}
}

// Load reads dir/config.json over the defaults. A missing file is not an
// error.
func Load(dir string) (*Config, error) {
	return layered(filepath.Join(dir, FileName))
}

// LoadWithRepo layers the defaults, globalDir/config.json and the nearest
// .mcad/config.json at or above startDir, in that order.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	return layered(filepath.Join(globalDir, FileName), FindRepoConfig(startDir))
}

// FindRepoConfig returns the path of the closest .mcad/config.json at or
// above startDir, or "" when there is none.
func FindRepoConfig(startDir string) string {
	for dir := startDir; ; {
		candidate := filepath.Join(dir, ".mcad", FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func layered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	for _, p := range paths {
		layer, err := readFile(p)
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, layer)
	}
	return cfg, nil
}

// readFile decodes one config file. An empty path or a missing file yields
// an empty layer.
func readFile(path string) (*Config, error) {
	layer := &Config{}
	if path == "" {
		return layer, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return layer, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, layer); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, nil
}

// Merge returns base with overlay applied. Set scalars in overlay win,
// AllowUnsafePaths is true if either layer sets it and lists are
// concatenated without blanks or duplicates.
func Merge(base, overlay *Config) *Config {
	return &Config{
		CurveSamples:          pick(overlay.CurveSamples, base.CurveSamples),
		SolidName:             pick(strings.TrimSpace(overlay.SolidName), base.SolidName),
		DocumentKey:           pick(strings.TrimSpace(overlay.DocumentKey), base.DocumentKey),
		Owner:                 pick(strings.TrimSpace(overlay.Owner), base.Owner),
		ConvertURL:            pick(strings.TrimSpace(overlay.ConvertURL), base.ConvertURL),
		ConvertTimeoutSeconds: pick(overlay.ConvertTimeoutSeconds, base.ConvertTimeoutSeconds),
		AllowedPaths:          union(base.AllowedPaths, overlay.AllowedPaths),
		AllowUnsafePaths:      base.AllowUnsafePaths || overlay.AllowUnsafePaths,
		DBMaxOpenConns:        pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:        pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		DisabledTools:         union(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes:         union(base.DisabledTypes, overlay.DisabledTypes),
	}
}

// pick returns v unless it is the zero value.
func pick[T comparable](v, fallback T) T {
	var zero T
	if v != zero {
		return v
	}
	return fallback
}

func union(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}
