package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/pkg/version"
)

// StatusFileName is the last build status inside the data directory.
const StatusFileName = "status.json"

// Status describes the current generation.
type Status struct {
	CorpusPath    string               `json:"corpus_path"`
	Generation    int                  `json:"generation"`
	Inert         bool                 `json:"inert"`
	Chunks        int                  `json:"chunks"`
	Sources       []string             `json:"sources"`
	Categories    map[string]int       `json:"categories"`
	Skipped       []ingest.SkippedFile `json:"skipped,omitempty"`
	Model         string               `json:"model"`
	Dimensions    int                  `json:"dimensions"`
	ZeroVectors   int                  `json:"zero_vectors"`
	DenseBackend  string               `json:"dense_backend"`
	SparseBackend string               `json:"sparse_backend"`
	BuiltAt       time.Time            `json:"built_at"`
	BuildDuration time.Duration        `json:"build_duration_ns"`
	LastError     string               `json:"last_error,omitempty"`
	Version       string               `json:"version"`
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		CorpusPath:    s.cfg.Corpus.Path,
		Inert:         s.gen == nil,
		Categories:    map[string]int{},
		DenseBackend:  s.cfg.Search.DenseBackend,
		SparseBackend: s.cfg.Search.SparseBackend,
		Version:       version.Version,
	}
	if s.embedder != nil {
		st.Model = s.embedder.ModelName()
		st.Dimensions = s.embedder.Dimensions()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if g := s.gen; g != nil {
		st.Generation = g.number
		st.Chunks = g.corpus.Len()
		st.Sources = g.corpus.Sources()
		st.Categories = g.corpus.CategoryCounts()
		st.ZeroVectors = g.dense.ZeroVectors()
		st.DenseBackend = g.dense.Backend()
		st.SparseBackend = g.sparse.Backend()
		st.BuiltAt = g.builtAt
		st.BuildDuration = g.duration
		if g.report != nil {
			st.Skipped = g.report.Skipped
		}
	}
	return st
}

// SaveStatus writes st to dataDir/status.json via a temp file and rename.
func SaveStatus(dataDir string, st Status) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	path := filepath.Join(dataDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save status file: %w", err)
	}
	return nil
}

// LoadStatus reads the last saved status from dataDir.
func LoadStatus(dataDir string) (*Status, error) {
	path := filepath.Join(dataDir, StatusFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found in %s", StatusFileName, dataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", StatusFileName, err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", StatusFileName, err)
	}
	return &st, nil
}
