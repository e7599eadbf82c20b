package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/propguard/backtest"
)

// FileStore keeps one <run_id>.json document per run in a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

// fileDoc is the on-disk document: the result plus its creation time.
type fileDoc struct {
	Created time.Time `json:"created"`
	*backtest.Result
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(s.dir, runID+".json"), nil
}

// SaveRun writes the document atomically via a temp file and rename.
func (s *FileStore) SaveRun(_ context.Context, res *backtest.Result) error {
	p, err := s.path(res.ID)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(fileDoc{Created: s.now().UTC(), Result: res}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run %s: %w", res.ID, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) load(runID string) (fileDoc, error) {
	p, err := s.path(runID)
	if err != nil {
		return fileDoc{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileDoc{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return fileDoc{}, err
	}
	doc := fileDoc{Result: &backtest.Result{}}
	if err := json.Unmarshal(b, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return doc, nil
}

func (s *FileStore) GetRun(_ context.Context, runID string) (*backtest.Result, error) {
	doc, err := s.load(runID)
	if err != nil {
		return nil, err
	}
	return doc.Result, nil
}

// ListRuns reads every document in the directory, oldest first.
func (s *FileStore) ListRuns(_ context.Context) ([]RunRecord, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(matches))
	for _, m := range matches {
		doc, err := s.load(strings.TrimSuffix(filepath.Base(m), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, recordOf(doc.Result, doc.Created))
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Created.Equal(out[b].Created) {
			return out[a].Created.Before(out[b].Created)
		}
		return out[a].RunID < out[b].RunID
	})
	return out, nil
}

func (s *FileStore) ListEquity(_ context.Context, runID string) ([]EquitySnapshot, error) {
	doc, err := s.load(runID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshotsOf(doc.Result), nil
}

// ListEquityBetween scans every document in the directory.
func (s *FileStore) ListEquityBetween(_ context.Context, start, end time.Time) ([]EquitySnapshot, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var out []EquitySnapshot
	for _, m := range matches {
		doc, err := s.load(strings.TrimSuffix(filepath.Base(m), ".json"))
		if err != nil {
			return nil, err
		}
		for _, e := range snapshotsOf(doc.Result) {
			if !e.Time.Before(start) && e.Time.Before(end) {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		switch {
		case !out[a].Time.Equal(out[b].Time):
			return out[a].Time.Before(out[b].Time)
		case out[a].RunID != out[b].RunID:
			return out[a].RunID < out[b].RunID
		}
		return out[a].Index < out[b].Index
	})
	return out, nil
}

func (s *FileStore) Close() error { return nil }
