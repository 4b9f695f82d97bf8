// Package testerini edits the section/key configuration files the strategy
// tester is started with.
package testerini

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"AutoOptimiser/pkg/textenc"
)

// SectionTester is the section holding launch settings.
const SectionTester = "Tester"

func init() {
	// The tester does not accept "key = value".
	ini.PrettyFormat = false
	ini.LineBreak = "\r\n"
}

// File is one configuration file kept in memory until Save.
type File struct {
	path string
	enc  textenc.Encoding
	cfg  *ini.File
}

// Load parses path, detecting UTF-16 or UTF-8 from its BOM.
func Load(path string) (*File, error) {
	text, enc, err := textenc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tester config: %w", err)
	}
	cfg, err := parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &File{path: path, enc: enc, cfg: cfg}, nil
}

// New returns an empty file that will be written to path in enc.
func New(path string, enc textenc.Encoding) *File {
	return &File{path: path, enc: enc, cfg: ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})}
}

func parse(b []byte) (*ini.File, error) {
	return ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, b)
}

func (f *File) Path() string { return f.path }

func (f *File) Encoding() textenc.Encoding { return f.enc }

// Duplicate writes the current content to newPath and returns the copy.
// Later edits to either file do not affect the other.
func (f *File) Duplicate(newPath string) (*File, error) {
	var buf bytes.Buffer
	if _, err := f.cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("duplicate tester config: %w", err)
	}
	cfg, err := parse(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("duplicate tester config: %w", err)
	}
	dup := &File{path: newPath, enc: f.enc, cfg: cfg}
	if err := dup.Save(); err != nil {
		return nil, err
	}
	return dup, nil
}

// Get returns the value of key in section and whether it exists.
func (f *File) Get(section, key string) (string, bool) {
	s, err := f.cfg.GetSection(section)
	if err != nil || !s.HasKey(key) {
		return "", false
	}
	return s.Key(key).String(), true
}

func (f *File) Set(section, key, value string) {
	f.cfg.Section(section).Key(key).SetValue(value)
}

func (f *File) Delete(section, key string) {
	if s, err := f.cfg.GetSection(section); err == nil {
		s.DeleteKey(key)
	}
}

// Keys lists the keys of section in file order.
func (f *File) Keys(section string) []string {
	s, err := f.cfg.GetSection(section)
	if err != nil {
		return nil
	}
	return s.KeyStrings()
}

// Save writes the file atomically in its original encoding.
func (f *File) Save() error {
	var buf bytes.Buffer
	if _, err := f.cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("render tester config: %w", err)
	}
	data, err := textenc.Encode(f.enc, buf.String())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("save tester config: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save tester config: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save tester config: %w", err)
	}
	return nil
}
