// Package ingest loads a corpus folder into chunks and serves the original
// source files back by name.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/lexmind/internal/chunk"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// PDFTool is the external text extractor used for PDF files.
const PDFTool = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = lexerrors.New(lexerrors.ErrCodeUnsupportedFormat,
	"pdftotext not found in PATH", nil).
	WithSuggestion("Install poppler-utils to index PDF files")

// Extractor turns a file into a chunk.Document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*chunk.Document, error)
}

// TextExtractor reads plain text and Markdown files as a single page.
type TextExtractor struct{}

// Extract reads path as UTF-8 text.
func (TextExtractor) Extract(_ context.Context, path string) (*chunk.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return &chunk.Document{Source: filepath.Base(path), Pages: []chunk.Page{{Text: text}}}, nil
}

// DocxExtractor reads the paragraphs of word/document.xml.
type DocxExtractor struct{}

// Extract returns the non-empty paragraphs of a .docx file, one per line.
func (DocxExtractor) Extract(_ context.Context, path string) (*chunk.Document, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("%s is not a valid docx archive", filepath.Base(path)), err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, lexerrors.New(lexerrors.ErrCodeUnsupportedFormat,
				fmt.Sprintf("failed to parse %s", filepath.Base(path)), err)
		}
		return &chunk.Document{Source: filepath.Base(path), Pages: []chunk.Page{{Text: text}}}, nil
	}
	return nil, lexerrors.New(lexerrors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("%s has no word/document.xml", filepath.Base(path)), nil)
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		if line := b.String(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// PDFExtractor runs pdftotext and splits its output into pages at form
// feeds.
type PDFExtractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// NewPDFExtractor returns an extractor using the installed pdftotext.
func NewPDFExtractor() *PDFExtractor {
	return NewPDFExtractorWithRunner(execRunner{}, exec.LookPath)
}

// NewPDFExtractorWithRunner returns an extractor with an injected runner
// and tool lookup.
func NewPDFExtractorWithRunner(runner CommandRunner, lookPath func(string) (string, error)) *PDFExtractor {
	return &PDFExtractor{runner: runner, lookPath: lookPath}
}

// Available reports whether pdftotext can be found.
func (p *PDFExtractor) Available() bool {
	_, err := p.lookPath(PDFTool)
	return err == nil
}

// Extract returns one page per form-feed separated block, numbered from 1.
func (p *PDFExtractor) Extract(ctx context.Context, path string) (*chunk.Document, error) {
	tool, err := p.lookPath(PDFTool)
	if err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := p.runner.Run(ctx, tool, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", filepath.Base(path), err)
	}
	return &chunk.Document{Source: filepath.Base(path), Pages: splitPages(string(out))}, nil
}

// splitPages splits pdftotext output at form feeds. The empty block after
// the final form feed is dropped; empty pages keep their number.
func splitPages(text string) []chunk.Page {
	raw := strings.Split(text, "\f")
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]chunk.Page, len(raw))
	for i, t := range raw {
		pages[i] = chunk.Page{Number: i + 1, Text: t}
	}
	return pages
}
