package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/lexmind/internal/chunk"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// DefaultExtensions are the file types loaded from a corpus folder.
var DefaultExtensions = []string{".txt", ".md", ".docx", ".pdf"}

// SkippedFile is a file that produced no chunks.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarises a folder load.
type Report struct {
	Files    int           `json:"files"`
	Chunks   int           `json:"chunks"`
	Skipped  []SkippedFile `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Loader reads the files of one folder into a corpus.
type Loader struct {
	extractors map[string]Extractor
	chunker    chunk.Chunker
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithExtractor registers or replaces the extractor for ext (".pdf").
func WithExtractor(ext string, e Extractor) LoaderOption {
	return func(l *Loader) {
		l.extractors[strings.ToLower(ext)] = e
	}
}

// WithChunker replaces the heading chunker.
func WithChunker(c chunk.Chunker) LoaderOption {
	return func(l *Loader) {
		l.chunker = c
	}
}

// NewLoader creates a loader for extensions (DefaultExtensions when empty).
func NewLoader(extensions []string, opts ...LoaderOption) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	all := map[string]Extractor{
		".txt":  TextExtractor{},
		".md":   TextExtractor{},
		".docx": DocxExtractor{},
		".pdf":  NewPDFExtractor(),
	}
	l := &Loader{extractors: make(map[string]Extractor), chunker: chunk.NewHeadingChunker()}
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if e, ok := all[ext]; ok {
			l.extractors[ext] = e
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFolder loads every supported file directly inside dir, in name order.
// Files that fail to extract are skipped with a warning and listed in the
// report. A missing folder is an ERR_202 error.
func (l *Loader) LoadFolder(ctx context.Context, dir string) (*store.Corpus, *Report, error) {
	start := time.Now()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, lexerrors.New(lexerrors.ErrCodeCorpusDirMissing,
				fmt.Sprintf("corpus folder %s does not exist", dir), err).
				WithSuggestion("Set corpus.path in .lexmind.yaml or LEXMIND_CORPUS_PATH")
		}
		return nil, nil, lexerrors.New(lexerrors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read corpus folder %s", dir), err)
	}

	report := &Report{}
	var chunks []store.Chunk
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		extractor, ok := l.extractors[ext]
		if !ok {
			continue
		}

		fileChunks, err := l.loadFile(ctx, extractor, filepath.Join(dir, entry.Name()))
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			slog.Warn("corpus_file_skipped",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()))
			report.Skipped = append(report.Skipped, SkippedFile{Name: entry.Name(), Reason: err.Error()})
			continue
		}
		if len(fileChunks) == 0 {
			report.Skipped = append(report.Skipped, SkippedFile{Name: entry.Name(), Reason: "no text"})
			continue
		}
		report.Files++
		chunks = append(chunks, fileChunks...)
	}

	corpus, err := store.NewCorpus(chunks)
	if err != nil {
		return nil, nil, err
	}
	report.Chunks = corpus.Len()
	report.Duration = time.Since(start)

	slog.Info("corpus_loaded",
		slog.String("dir", dir),
		slog.Int("files", report.Files),
		slog.Int("chunks", report.Chunks),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration))
	return corpus, report, nil
}

func (l *Loader) loadFile(ctx context.Context, extractor Extractor, path string) ([]store.Chunk, error) {
	doc, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return l.chunker.Chunk(ctx, doc)
}

// LoadFolder loads dir with the default extensions.
func LoadFolder(ctx context.Context, dir string) (*store.Corpus, *Report, error) {
	return NewLoader(nil).LoadFolder(ctx, dir)
}
