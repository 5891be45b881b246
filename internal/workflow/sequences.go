package workflow

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/sequence"
)

// LoadSequences reads sequence specifications from Go test files and YAML
// sheets. Directories are scanned for both, non-recursively.
func LoadSequences(paths []model.Path, ispec *model.InterfaceSpecification) ([]*sequence.Specification, error) {
	files, err := sequenceFiles(paths)
	if err != nil {
		return nil, err
	}

	var specs []*sequence.Specification

	seen := make(map[string]string)

	for _, file := range files {
		loaded, err := loadSequenceFile(file, ispec)
		if err != nil {
			return nil, err
		}

		for _, spec := range loaded {
			if prev, ok := seen[spec.Name]; ok {
				return nil, fmt.Errorf("duplicate sequence %q in %s and %s", spec.Name, prev, file)
			}

			seen[spec.Name] = file
			specs = append(specs, spec)
		}
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoSequences, paths)
	}

	slog.Debug("loaded sequences", "files", len(files), "sequences", len(specs))

	return specs, nil
}

func sequenceFiles(paths []model.Path) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(string(path))
		if err != nil {
			return nil, fmt.Errorf("sequence path: %w", err)
		}

		if !info.IsDir() {
			files = append(files, string(path))

			continue
		}

		entries, err := os.ReadDir(string(path))
		if err != nil {
			return nil, fmt.Errorf("read sequence directory: %w", err)
		}

		var found []string

		for _, entry := range entries {
			if entry.Type()&fs.ModeType == 0 && isSequenceFile(entry.Name()) {
				found = append(found, filepath.Join(string(path), entry.Name()))
			}
		}

		sort.Strings(found)
		files = append(files, found...)
	}

	return files, nil
}

func isSequenceFile(name string) bool {
	return strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func loadSequenceFile(file string, ispec *model.InterfaceSpecification) ([]*sequence.Specification, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read sequences: %w", err)
	}

	switch filepath.Ext(file) {
	case ".go":
		specs, err := sequence.ParseTestFile(file, src, ispec)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}

		return specs, nil
	case ".yaml", ".yml":
		specs, err := sequence.LoadYAML(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}

		return specs, nil
	default:
		return nil, fmt.Errorf("unsupported sequence file %s", file)
	}
}

// FilterCUTs keeps the candidates named by filters (id, class name or key).
// An empty filter keeps everything.
func FilterCUTs(cuts []model.ClassUnderTest, filters []string) []model.ClassUnderTest {
	if len(filters) == 0 {
		return cuts
	}

	wanted := make(map[string]bool, len(filters))
	for _, f := range filters {
		wanted[strings.TrimSpace(f)] = true
	}

	var kept []model.ClassUnderTest

	for _, cut := range cuts {
		if wanted[cut.ID] || wanted[cut.ClassName] || wanted[cut.Key()] {
			kept = append(kept, cut)
		}
	}

	return kept
}

// Shard keeps the candidates at positions congruent to index modulo count.
func Shard(cuts []model.ClassUnderTest, index, count int) []model.ClassUnderTest {
	if count <= 1 {
		return cuts
	}

	var kept []model.ClassUnderTest

	for i, cut := range cuts {
		if i%count == index {
			kept = append(kept, cut)
		}
	}

	return kept
}
