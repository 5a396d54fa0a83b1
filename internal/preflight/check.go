package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/embed"
	"github.com/Aman-CERP/lexmind/internal/output"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// EmbedderFactory builds the embedder probed by CheckEmbedder.
type EmbedderFactory func(ctx context.Context, cfg config.EmbeddingsConfig) (embed.Embedder, error)

// Checker performs preflight validation checks.
type Checker struct {
	cfg         *config.Config
	verbose     bool
	output      io.Writer
	lookPath    func(string) (string, error)
	newEmbedder EmbedderFactory
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithLookPath replaces the PATH lookup used for external tools.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Checker) {
		c.lookPath = fn
	}
}

// WithEmbedderFactory replaces the embedder constructor.
func WithEmbedderFactory(fn EmbedderFactory) Option {
	return func(c *Checker) {
		c.newEmbedder = fn
	}
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:    cfg,
		output: os.Stdout,
		newEmbedder: func(ctx context.Context, ec config.EmbeddingsConfig) (embed.Embedder, error) {
			// No snapshot: the probe must reach the provider.
			ec.Snapshot = false
			return embed.New(ctx, ec, "")
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks and returns the results.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	corpus, files := c.CheckCorpusFolder()
	return []CheckResult{
		corpus,
		c.CheckPDFTool(files),
		c.CheckWritePermissions(c.cfg.Storage.DataDir),
		c.CheckDiskSpace(c.cfg.Storage.DataDir),
		c.CheckEmbedder(ctx),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results followed by the overall status and a
// list of the problems found.
func (c *Checker) PrintResults(results []CheckResult) {
	out := output.New(c.output)
	out.Header("LexMind System Check")
	out.Newline()

	var problems []CheckResult
	for _, r := range results {
		out.Status(fmt.Sprintf("[%s]", r.Status), r.Name+": "+r.Message)
		if c.verbose && r.Details != "" {
			out.Dim("       " + r.Details)
		}
		if r.Status != StatusPass {
			problems = append(problems, r)
		}
	}

	out.Newline()
	status := strings.ToUpper(c.SummaryStatus(results))
	switch {
	case c.HasCriticalFailures(results):
		out.Errorf("Status: %s", status)
	case len(problems) > 0:
		out.Warningf("Status: %s", status)
	default:
		out.Successf("Status: %s", status)
	}

	for _, r := range problems {
		if r.IsCritical() {
			out.Status("  -", "error: "+r.Name+": "+r.Message)
		} else {
			out.Status("  -", "warning: "+r.Name+": "+r.Message)
		}
	}
}

// CheckWritePermissions checks that the data directory can be created and
// written.
func (c *Checker) CheckWritePermissions(path string) CheckResult {
	result := CheckResult{
		Name:     "data_dir",
		Required: true,
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", path, err)
		return result
	}

	testFile := filepath.Join(path, ".lexmind-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = path
	return result
}
