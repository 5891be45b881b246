// Package adapter persists arena results: report files, sheets and the
// adapter store used for replay.
package adapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "lasso.dev/pkg/lasso/internal/model"
)

// ErrNoReports is returned by LoadReports when the file holds no reports.
var ErrNoReports = errors.New("no reports")

// ReportStore persists the reports of a run.
type ReportStore interface {
	SaveReports(path m.Path, reports []m.Report) error
	LoadReports(path m.Path) ([]m.Report, error)
}

// reportFile is the on-disk layout of a report store.
type reportFile struct {
	Version int        `yaml:"version"`
	Reports []m.Report `yaml:"reports"`
}

const reportFileVersion = 1

// YAMLReportStore keeps reports in a single YAML document.
type YAMLReportStore struct{}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReports writes reports to path, replacing the file atomically.
func (s *YAMLReportStore) SaveReports(path m.Path, reports []m.Report) error {
	dir := filepath.Dir(string(path))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".reports-*.yaml")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	enc := yaml.NewEncoder(tmp)
	enc.SetIndent(2)

	if err := enc.Encode(reportFile{Version: reportFileVersion, Reports: reports}); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("encode reports: %w", err)
	}

	if err := enc.Close(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("encode reports: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	if err := os.Rename(tmp.Name(), string(path)); err != nil {
		return fmt.Errorf("rename report file: %w", err)
	}

	slog.Debug("saved reports", "path", path, "reports", len(reports))

	return nil
}

// LoadReports reads the reports saved at path.
func (s *YAMLReportStore) LoadReports(path m.Path) ([]m.Report, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open reports: %w", err)
	}
	defer f.Close()

	var file reportFile
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoReports)
		}

		return nil, fmt.Errorf("decode reports %s: %w", path, err)
	}

	if file.Version != reportFileVersion {
		return nil, fmt.Errorf("reports %s: unsupported version %d", path, file.Version)
	}

	return file.Reports, nil
}
