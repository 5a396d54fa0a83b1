package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/lexmind/internal/ingest"
)

// CheckCorpusFolder checks the corpus folder and returns the supported
// files it holds.
func (c *Checker) CheckCorpusFolder() (CheckResult, []string) {
	result := CheckResult{
		Name:     "corpus_folder",
		Required: true,
	}
	dir := c.cfg.Corpus.Path

	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Status = StatusFail
		if os.IsNotExist(err) {
			result.Message = fmt.Sprintf("%s does not exist", dir)
			result.Details = "Set corpus.path in .lexmind.yaml or LEXMIND_CORPUS_PATH"
		} else {
			result.Message = fmt.Sprintf("cannot read %s: %v", dir, err)
		}
		return result, nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if c.supported(e.Name()) {
			files = append(files, e.Name())
		}
	}

	if len(files) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s has no %s files", dir, strings.Join(c.extensions(), "/"))
		return result, nil
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d documents in %s", len(files), dir)
	return result, files
}

// CheckPDFTool checks for pdftotext when the corpus holds PDFs.
func (c *Checker) CheckPDFTool(files []string) CheckResult {
	result := CheckResult{
		Name:     "pdf_tool",
		Required: false,
	}

	pdfs := 0
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".pdf") {
			pdfs++
		}
	}

	lookPath := c.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(ingest.PDFTool)
	switch {
	case err == nil:
		result.Status = StatusPass
		result.Message = path
	case pdfs == 0:
		result.Status = StatusPass
		result.Message = ingest.PDFTool + " not installed (no PDFs in corpus)"
	default:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s not installed; %d PDF files will be skipped", ingest.PDFTool, pdfs)
		result.Details = "Install poppler-utils"
	}
	return result
}

func (c *Checker) extensions() []string {
	if len(c.cfg.Corpus.Extensions) > 0 {
		return c.cfg.Corpus.Extensions
	}
	return ingest.DefaultExtensions
}

func (c *Checker) supported(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range c.extensions() {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
