// Package config implements Lego settings loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

const (
	// ProjectFileName is looked up in the project directory.
	ProjectFileName = "lego.toml"
	userDirName     = ".lego"
	userFileName    = "config.toml"
)

// Settings are the effective options after file lookup and defaults.
// MaxIterations and TimeoutMs of 0 mean unlimited.
type Settings struct {
	Pretty        bool
	MaxIterations int64
	TimeoutMs     int64
	TraceFile     string
	// Source is the file the settings came from, empty for defaults.
	Source string
}

// File represents the TOML structure of a settings file.
type File struct {
	Output OutputSection `toml:"output"`
	Eval   EvalSection   `toml:"eval"`
}

// OutputSection controls how results and diagnostics are printed.
type OutputSection struct {
	Pretty *bool `toml:"pretty,omitempty"`
}

// EvalSection controls evaluation limits and tracing.
type EvalSection struct {
	MaxIterations *int64 `toml:"max_iterations,omitempty"`
	TimeoutMs     *int64 `toml:"timeout_ms,omitempty"`
	TraceFile     string `toml:"trace_file,omitempty"`
}

// Error reports an unreadable or malformed settings file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts the error to an E_CONFIG diagnostic.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	var span *ast.Span
	var de *toml.DecodeError
	if errors.As(e.Err, &de) {
		row, col := de.Position()
		span = &ast.Span{File: e.Path, StartLine: row, StartCol: col, EndLine: row, EndCol: col + 1}
	}
	return diagnostics.MakeDiag(diagnostics.EConfig, e.Error(), span,
		"settings files accept [output] pretty and [eval] max_iterations, trace_file")
}

// Defaults returns the settings used when no file is found.
func Defaults() Settings {
	return Settings{}
}

// Load resolves settings for projectDir.
// Precedence: project (lego.toml) → user (~/.lego/config.toml) → defaults.
// The first file found wins; a malformed file is an error rather than
// silently falling through.
func Load(projectDir string) (Settings, *File, error) {
	projectPath := filepath.Join(projectDir, ProjectFileName)
	if f, err := LoadFile(projectPath); err == nil {
		return apply(Defaults(), f, projectPath), f, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, userDirName, userFileName)
		if f, err := LoadFile(userPath); err == nil {
			return apply(Defaults(), f, userPath), f, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil, err
		}
	}

	return Defaults(), nil, nil
}

// LoadFile reads and strictly decodes a single settings file. A missing file
// yields an error satisfying errors.Is(err, os.ErrNotExist).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, &Error{Path: path, Err: err}
	}
	f, err := Decode(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return f, nil
}

// Decode parses TOML settings, rejecting unknown keys and invalid values.
func Decode(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f.Eval.MaxIterations != nil && *f.Eval.MaxIterations < 0 {
		return nil, fmt.Errorf("eval.max_iterations must be >= 0, got %d", *f.Eval.MaxIterations)
	}
	if f.Eval.TimeoutMs != nil && *f.Eval.TimeoutMs < 0 {
		return nil, fmt.Errorf("eval.timeout_ms must be >= 0, got %d", *f.Eval.TimeoutMs)
	}
	return &f, nil
}

func apply(s Settings, f *File, source string) Settings {
	if f.Output.Pretty != nil {
		s.Pretty = *f.Output.Pretty
	}
	if f.Eval.MaxIterations != nil {
		s.MaxIterations = *f.Eval.MaxIterations
	}
	if f.Eval.TimeoutMs != nil {
		s.TimeoutMs = *f.Eval.TimeoutMs
	}
	if f.Eval.TraceFile != "" {
		s.TraceFile = f.Eval.TraceFile
	}
	s.Source = source
	return s
}

// Encode renders s as a complete TOML settings file.
func Encode(s Settings) ([]byte, error) {
	pretty := s.Pretty
	maxIter := s.MaxIterations
	timeout := s.TimeoutMs
	f := File{
		Output: OutputSection{Pretty: &pretty},
		Eval:   EvalSection{MaxIterations: &maxIter, TimeoutMs: &timeout, TraceFile: s.TraceFile},
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}
