package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.args = append([]string{name}, args...)
	return m.output, m.err
}

func foundTool(name string) (string, error) { return "/usr/bin/" + name, nil }

func missingTool(string) (string, error) { return "", errors.New("not found") }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDocx(t *testing.T, dir, name string, paragraphs ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	_, err = w.Write([]byte(b.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestTextExtractor_SinglePage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notiz.txt", "§ 1 Zweck\r\nText.")

	doc, err := TextExtractor{}.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "notiz.txt", doc.Source)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 0, doc.Pages[0].Number)
	assert.Equal(t, "§ 1 Zweck\nText.", doc.Pages[0].Text)
}

func TestDocxExtractor_JoinsParagraphs(t *testing.T) {
	dir := t.TempDir()
	path := writeDocx(t, dir, "vertrag.docx", "§ 1 Kaufpreis", "", "Der Kaufpreis beträgt CHF 1000.")

	doc, err := DocxExtractor{}.Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "§ 1 Kaufpreis\nDer Kaufpreis beträgt CHF 1000.", doc.Pages[0].Text)
}

func TestDocxExtractor_InvalidArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kaputt.docx", "not a zip")

	_, err := DocxExtractor{}.Extract(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeUnsupportedFormat, lexerrors.GetCode(err))
}

func TestPDFExtractor_SplitsPagesAtFormFeed(t *testing.T) {
	runner := &mockRunner{output: []byte("Seite eins\fSeite zwei\f")}
	p := NewPDFExtractorWithRunner(runner, foundTool)

	doc, err := p.Extract(context.Background(), "/tmp/urkunde.pdf")
	require.NoError(t, err)

	assert.Equal(t, "urkunde.pdf", doc.Source)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, "Seite zwei", doc.Pages[1].Text)
	assert.Equal(t, []string{"/usr/bin/pdftotext", "-layout", "-enc", "UTF-8", "/tmp/urkunde.pdf", "-"}, runner.args)
}

func TestPDFExtractor_Errors(t *testing.T) {
	t.Run("tool missing", func(t *testing.T) {
		p := NewPDFExtractorWithRunner(&mockRunner{}, missingTool)
		assert.False(t, p.Available())

		_, err := p.Extract(context.Background(), "a.pdf")
		assert.Equal(t, lexerrors.ErrCodeUnsupportedFormat, lexerrors.GetCode(err))
	})

	t.Run("tool fails", func(t *testing.T) {
		p := NewPDFExtractorWithRunner(&mockRunner{err: errors.New("exit status 1")}, foundTool)
		_, err := p.Extract(context.Background(), "a.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pdftotext failed")
	})
}

func TestLoader_LoadFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_klage.txt", "§ 1 Klage\nDie Klägerin beantragt Zahlung.\n§ 2 Begründung\nDer Beklagte hat nicht bezahlt.")
	writeDocx(t, dir, "a_vertrag.docx", "Art. 1 Vertragsparteien", "Dieser Vertrag regelt den Kauf.")
	writeFile(t, dir, "bild.png", "binary")
	writeFile(t, dir, ".hidden.txt", "§ 1 Versteckt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, filepath.Join(dir, "sub"), "nested.txt", "§ 1 Nicht geladen")

	pdf := NewPDFExtractorWithRunner(&mockRunner{output: []byte("§ 1 Urkunde\nBeurkundung durch Notar.\f")}, foundTool)
	writeFile(t, dir, "c_urkunde.pdf", "%PDF")

	loader := NewLoader(nil, WithExtractor(".pdf", pdf))
	corpus, report, err := loader.LoadFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"a_vertrag.docx", "b_klage.txt", "c_urkunde.pdf"}, corpus.Sources())
	require.Equal(t, 4, corpus.Len())
	assert.Equal(t, report.Chunks, corpus.Len())

	first := corpus.At(0)
	assert.Equal(t, "Art. 1 Vertragsparteien", first.Heading)
	assert.Equal(t, "Verträge", first.Category)

	last := corpus.At(3)
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, "c_urkunde.pdf", last.Source)
}

func TestLoader_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gut.txt", "§ 1 Inhalt\nEtwas Text.")
	writeFile(t, dir, "kaputt.docx", "not a zip")
	writeFile(t, dir, "leer.md", "   ")

	corpus, report, err := NewLoader(nil).LoadFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, corpus.Len())
	assert.Equal(t, 1, report.Files)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "kaputt.docx", report.Skipped[0].Name)
	assert.Equal(t, "leer.md", report.Skipped[1].Name)
}

func TestLoader_RestrictsExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Text A.")
	writeFile(t, dir, "b.md", "Text B.")

	corpus, _, err := NewLoader([]string{".MD"}).LoadFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, corpus.Sources())
}

func TestLoader_EmptyAndMissingFolder(t *testing.T) {
	corpus, report, err := LoadFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, corpus.Len())
	assert.Equal(t, 0, report.Files)

	_, _, err = LoadFolder(context.Background(), filepath.Join(t.TempDir(), "fehlt"))
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeCorpusDirMissing, lexerrors.GetCode(err))
}

func TestLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Text.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := LoadFolder(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vertrag.txt", "Inhalt")
	s := NewSourceStore(dir)

	rc, err := s.Open("vertrag.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Inhalt", string(data))

	size, err := s.Size("vertrag.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	_, err = s.Open("fehlt.txt")
	assert.Equal(t, lexerrors.ErrCodeSourceMissing, lexerrors.GetCode(err))

	for _, name := range []string{"", ".", "..", "../etc/passwd", "sub/vertrag.txt", `..\x`} {
		_, err := s.Open(name)
		assert.Equal(t, lexerrors.ErrCodeInvalidPath, lexerrors.GetCode(err), name)
	}
}
