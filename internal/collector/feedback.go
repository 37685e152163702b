package collector

import (
	"fmt"
	"path/filepath"
	"sort"

	"SolanaPredictor/internal/model"
)

// FeedbackDir is the directory where new observations accumulate between runs.
type FeedbackDir struct {
	Dir     string
	Pattern string
}

// List returns pending feedback files in lexical order.
func (d *FeedbackDir) List() ([]string, error) {
	if d == nil || d.Dir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(d.Dir, d.Pattern))
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load parses each file. Files that fail to parse or hold no rows are reported
// as warnings and left out of the returned batches.
func (d *FeedbackDir) Load(paths []string) ([]model.FeedbackBatch, []string) {
	var (
		batches  []model.FeedbackBatch
		warnings []string
	)
	for _, p := range paths {
		bars, err := ReadBarsFile(p)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skip feedback %s: %v", filepath.Base(p), err))
			continue
		}
		if len(bars) == 0 {
			warnings = append(warnings, fmt.Sprintf("skip feedback %s: no rows", filepath.Base(p)))
			continue
		}
		batches = append(batches, model.FeedbackBatch{Path: p, Bars: bars})
	}
	return batches, warnings
}
