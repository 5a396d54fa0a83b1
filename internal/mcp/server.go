package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/session"
	"github.com/Aman-CERP/lexmind/internal/telemetry"
	"github.com/Aman-CERP/lexmind/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "LexMind"

// MaxSourceSize caps the size of a source served as a resource.
const MaxSourceSize = 20 * 1024 * 1024

// Corpus is what the server needs from a session.
type Corpus interface {
	Search(ctx context.Context, query string, opts search.Options) (*search.Response, error)
	Status() session.Status
}

// Server bridges MCP clients with the hybrid retriever.
type Server struct {
	mcp     *mcp.Server
	corpus  Corpus
	log     *telemetry.SearchLog
	sources *ingest.SourceStore
	logger  *slog.Logger

	resMu      sync.Mutex
	registered map[string]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithSearchLog records every search in log.
func WithSearchLog(log *telemetry.SearchLog) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithSources exposes original documents as source:// resources.
func WithSources(store *ingest.SourceStore) Option {
	return func(s *Server) {
		s.sources = store
	}
}

// NewServer creates an MCP server over corpus.
func NewServer(corpus Corpus, opts ...Option) (*Server, error) {
	if corpus == nil {
		return nil, errors.New("corpus is required")
	}
	s := &Server{corpus: corpus, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version.Version}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search",
		Description: "Hybrid search over the legal document corpus (contracts, deeds, lawsuits). " +
			"Combines semantic similarity with BM25 keywords and returns the best sentence of each " +
			"matching section with query terms and legal synonyms marked.",
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report whether the corpus is indexed: chunk and source counts, categories, embedding model and the last build error.",
	}, s.mcpCorpusStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 2))
}

// CallTool invokes a tool by name with decoded JSON arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		input, err := searchInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		return s.handleSearch(ctx, input)
	case "corpus_status":
		return s.handleCorpusStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func searchInputFromArgs(args map[string]any) (SearchInput, error) {
	var in SearchInput
	q, ok := args["query"].(string)
	if !ok {
		return in, NewInvalidParamsError("query parameter is required and must be a string")
	}
	in.Query = q
	if k, ok := args["k"].(float64); ok {
		in.K = int(k)
	}
	if a, ok := args["alpha"].(float64); ok {
		in.Alpha = &a
	}
	if c, ok := args["category"].(string); ok {
		in.Category = c
	}
	if d, ok := args["debug"].(bool); ok {
		in.Debug = d
	}
	return in, nil
}

// handleSearch runs a search and writes it to the search log.
func (s *Server) handleSearch(ctx context.Context, input SearchInput) (SearchOutput, error) {
	requestID := generateRequestID()
	start := time.Now()

	resp, err := s.corpus.Search(ctx, input.Query, search.Options{
		K:        input.K,
		Alpha:    input.Alpha,
		Debug:    input.Debug,
		Category: input.Category,
	})
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	out := ToSearchOutput(resp)
	if strings.TrimSpace(input.Query) != "" {
		if st := s.corpus.Status(); st.Inert {
			out.Notice = "The corpus is not indexed: " + st.LastError
		}
		s.record(ctx, resp)
	}

	s.logger.Info("mcp_search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(out.Results)))
	return out, nil
}

func (s *Server) record(ctx context.Context, resp *search.Response) {
	if s.log == nil {
		return
	}
	_, err := s.log.Record(ctx, telemetry.Entry{
		Query:       resp.Query,
		ResultCount: len(resp.Results),
		Alpha:       resp.Alpha,
		K:           resp.K,
		LatencyMs:   resp.Duration.Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("search_log_write_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) handleCorpusStatus() CorpusStatusOutput {
	return ToCorpusStatusOutput(s.corpus.Status())
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.handleSearch(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(out)}},
	}, out, nil
}

func (s *Server) mcpCorpusStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ CorpusStatusInput) (
	*mcp.CallToolResult,
	CorpusStatusOutput,
	error,
) {
	return nil, s.handleCorpusStatus(), nil
}

// RegisterSources adds one source://<name> resource per document of the
// current corpus.
func (s *Server) RegisterSources() int {
	if s.sources == nil {
		return 0
	}
	names := s.corpus.Status().Sources

	s.resMu.Lock()
	defer s.resMu.Unlock()

	current := make(map[string]struct{}, len(names))
	for _, name := range names {
		current[name] = struct{}{}
		s.mcp.AddResource(&mcp.Resource{
			Name:     name,
			URI:      SourceURI(name),
			MIMEType: MimeTypeForSource(name),
		}, s.makeSourceHandler(name))
	}
	var stale []string
	for name := range s.registered {
		if _, ok := current[name]; !ok {
			stale = append(stale, SourceURI(name))
		}
	}
	if len(stale) > 0 {
		s.mcp.RemoveResources(stale...)
	}
	s.registered = current
	s.logger.Info("mcp_sources_registered",
		slog.Int("count", len(names)),
		slog.Int("removed", len(stale)))
	return len(names)
}

// SourceURI is the resource URI of a corpus source file.
func SourceURI(name string) string {
	return "source://" + name
}

func (s *Server) makeSourceHandler(name string) mcp.ResourceHandler {
	return func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.readSource(name)
	}
}

// readSource returns the bytes of a source file. Text formats are returned
// as text, others as blob.
func (s *Server) readSource(name string) (*mcp.ReadResourceResult, error) {
	if s.sources == nil {
		return nil, MapError(lexerrors.New(lexerrors.ErrCodeSourceMissing, "no source folder configured", nil))
	}
	size, err := s.sources.Size(name)
	if err != nil {
		return nil, MapError(err)
	}
	if size > MaxSourceSize {
		return nil, NewInvalidParamsError(fmt.Sprintf("source too large: %d bytes (max %d)", size, MaxSourceSize))
	}

	rc, err := s.sources.Open(name)
	if err != nil {
		return nil, MapError(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, MapError(err)
	}

	mime := MimeTypeForSource(name)
	content := &mcp.ResourceContents{URI: SourceURI(name), MIMEType: mime}
	if isText(mime) {
		content.Text = string(data)
	} else {
		content.Blob = data
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{content}}, nil
}

// Serve runs the server on stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// generateRequestID creates a short ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
