package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/report"
)

// ReportFileSource reads result files written by the strategy.
type ReportFileSource struct{}

func NewReportFileSource() *ReportFileSource { return &ReportFileSource{} }

func (ReportFileSource) ReadResults(path string, expected models.AccountSettings) ([]models.ResultRecord, models.AccountSettings, error) {
	recs, hdr, err := report.ReadAll(path, expected)
	if err != nil {
		return nil, models.AccountSettings{}, err
	}
	return recs, hdr.Settings, nil
}

// Remove deletes path; a missing file is not an error.
func (ReportFileSource) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
