package repository

import (
	"fmt"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	"AutoOptimiser/pkg/testerini"
)

// TesterConfigStore hands out edited copies of a base tester configuration.
type TesterConfigStore struct {
	base string
}

// NewTesterConfigStore uses the file at base as the template of every launch.
func NewTesterConfigStore(base string) *TesterConfigStore {
	return &TesterConfigStore{base: base}
}

// Duplicate re-reads the template so edits from earlier launches never leak.
func (s *TesterConfigStore) Duplicate(path string) (drepo.ConfigEditor, error) {
	src, err := testerini.Load(s.base)
	if err != nil {
		return nil, err
	}
	dup, err := src.Duplicate(path)
	if err != nil {
		return nil, err
	}
	return &testerEditor{file: dup}, nil
}

type testerEditor struct {
	file *testerini.File
}

func (e *testerEditor) SetField(name models.ConfigField, value string) error {
	if !models.IsKnownField(name) {
		return fmt.Errorf("unknown tester field %q", name)
	}
	e.file.Set(testerini.SectionTester, string(name), value)
	return nil
}

func (e *testerEditor) DeleteField(name models.ConfigField) error {
	if !models.IsKnownField(name) {
		return fmt.Errorf("unknown tester field %q", name)
	}
	e.file.Delete(testerini.SectionTester, string(name))
	return nil
}

func (e *testerEditor) Save() error { return e.file.Save() }

func (e *testerEditor) Path() string { return e.file.Path() }
