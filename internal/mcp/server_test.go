package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/session"
	"github.com/Aman-CERP/lexmind/internal/store"
	"github.com/Aman-CERP/lexmind/internal/telemetry"
)

// fakeCorpus returns a canned response and records the options it saw.
type fakeCorpus struct {
	resp   *search.Response
	err    error
	status session.Status
	opts   search.Options
}

func (f *fakeCorpus) Search(_ context.Context, query string, opts search.Options) (*search.Response, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.Query = query
	return &resp, nil
}

func (f *fakeCorpus) Status() session.Status { return f.status }

func newFakeCorpus() *fakeCorpus {
	return &fakeCorpus{
		resp: &search.Response{
			K:     3,
			Alpha: 0.5,
			Results: []search.Result{{
				Chunk: store.Chunk{
					ID:       "abc",
					Content:  "Die <mark>Kündigungsfrist</mark> beträgt drei Monate.",
					Source:   "a.pdf",
					Page:     2,
					Heading:  "§ 4 Kündigung",
					Category: "Verträge",
				},
				Score:       0.61,
				DenseScore:  0.72,
				SparseScore: 0.5,
			}},
			Duration: 12 * time.Millisecond,
		},
		status: session.Status{
			CorpusPath: "/docs",
			Generation: 1,
			Chunks:     1,
			Sources:    []string{"a.pdf"},
			Categories: map[string]int{"Verträge": 1},
			BuiltAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func openLog(t *testing.T) *telemetry.SearchLog {
	t.Helper()
	l, err := telemetry.OpenSearchLog("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestNewServer_RequiresCorpus(t *testing.T) {
	_, err := NewServer(nil)
	require.Error(t, err)
}

func TestHandleSearch_ConvertsAndLogs(t *testing.T) {
	corpus := newFakeCorpus()
	log := openLog(t)
	srv, err := NewServer(corpus, WithSearchLog(log))
	require.NoError(t, err)

	alpha := 0.3
	out, err := srv.handleSearch(context.Background(), SearchInput{
		Query: "Kündigungsfrist", K: 2, Alpha: &alpha, Category: "Verträge", Debug: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, corpus.opts.K)
	assert.Equal(t, &alpha, corpus.opts.Alpha)
	assert.Equal(t, "Verträge", corpus.opts.Category)
	assert.True(t, corpus.opts.Debug)

	require.Len(t, out.Results, 1)
	r := out.Results[0]
	assert.Equal(t, "a.pdf", r.Source)
	assert.Equal(t, 2, r.Page)
	assert.Contains(t, r.Snippet, "<mark>Kündigungsfrist</mark>")
	assert.Equal(t, "abc", r.ChunkID)

	entries, err := log.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kündigungsfrist", entries[0].Query)
	assert.Equal(t, 1, entries[0].ResultCount)
	assert.Equal(t, int64(12), entries[0].LatencyMs)
}

func TestHandleSearch_EmptyQueryNotLogged(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.resp = &search.Response{K: 3, Alpha: 0.5}
	log := openLog(t)
	srv, err := NewServer(corpus, WithSearchLog(log))
	require.NoError(t, err)

	out, err := srv.handleSearch(context.Background(), SearchInput{Query: "  "})
	require.NoError(t, err)
	assert.Empty(t, out.Results)

	n, err := log.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleSearch_InertCorpusNotice(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.resp = &search.Response{K: 3, Alpha: 0.5}
	corpus.status = session.Status{Inert: true, LastError: "corpus folder missing"}
	srv, err := NewServer(corpus)
	require.NoError(t, err)

	out, err := srv.handleSearch(context.Background(), SearchInput{Query: "Vertrag"})
	require.NoError(t, err)
	assert.Contains(t, out.Notice, "corpus folder missing")
	assert.Contains(t, FormatSearchResults(out), "No results found")
}

func TestHandleSearch_ErrorsMapped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid alpha", lexerrors.New(lexerrors.ErrCodeInvalidAlpha, "alpha out of range", nil), ErrCodeInvalidParams},
		{"timeout", lexerrors.New(lexerrors.ErrCodeNetworkTimeout, "search timed out", nil), ErrCodeTimeout},
		{"embedding", lexerrors.New(lexerrors.ErrCodeEmbeddingFailed, "down", nil), ErrCodeEmbeddingFailed},
		{"both backends", lexerrors.New(lexerrors.ErrCodeSearchFailed, "both failed", nil), ErrCodeInternalError},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"plain", errors.New("boom"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := newFakeCorpus()
			corpus.err = tt.err
			srv, err := NewServer(corpus)
			require.NoError(t, err)

			_, err = srv.handleSearch(context.Background(), SearchInput{Query: "x"})
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestCallTool(t *testing.T) {
	srv, err := NewServer(newFakeCorpus())
	require.NoError(t, err)
	ctx := context.Background()

	res, err := srv.CallTool(ctx, "search", map[string]any{"query": "Kündigungsfrist", "k": float64(1), "alpha": 0.9})
	require.NoError(t, err)
	out, ok := res.(SearchOutput)
	require.True(t, ok)
	assert.Len(t, out.Results, 1)

	_, err = srv.CallTool(ctx, "search", map[string]any{})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	res, err = srv.CallTool(ctx, "corpus_status", nil)
	require.NoError(t, err)
	status := res.(CorpusStatusOutput)
	assert.True(t, status.Ready)
	assert.Equal(t, "2024-01-02T03:04:05Z", status.BuiltAt)

	_, err = srv.CallTool(ctx, "nonexistent_tool", nil)
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestFormatSearchResults(t *testing.T) {
	out := ToSearchOutput(newFakeCorpus().resp)
	out.Query = "Kündigungsfrist"
	out.Degraded = "dense"
	out.Diagnostics = []search.Diagnostic{{Snippet: "a|b", Sparse: 0.5, Dense: 0.72, Hybrid: 0.61}}

	md := FormatSearchResults(out)
	assert.Contains(t, md, "### 1. a.pdf, page 2 (score: 0.61)")
	assert.Contains(t, md, "**§ 4 Kündigung** · Verträge")
	assert.Contains(t, md, "dense backend was unavailable")
	assert.Contains(t, md, `a\|b`)
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Inhalt"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("%PDF-1.4"), 0o644))

	corpus := newFakeCorpus()
	corpus.status.Sources = []string{"a.txt", "b.pdf"}
	srv, err := NewServer(corpus, WithSources(ingest.NewSourceStore(dir)))
	require.NoError(t, err)
	assert.Equal(t, 2, srv.RegisterSources())
	assert.Len(t, srv.registered, 2)

	res, err := srv.readSource("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Inhalt", res.Contents[0].Text)
	assert.Equal(t, "text/plain", res.Contents[0].MIMEType)

	res, err = srv.readSource("b.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), res.Contents[0].Blob)

	_, err = srv.readSource("fehlt.txt")
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeSourceNotFound, mcpErr.Code)

	_, err = srv.readSource("../a.txt")
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestRegisterSources_DropsRemovedFiles(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.status.Sources = []string{"a.txt", "b.pdf"}
	srv, err := NewServer(corpus, WithSources(ingest.NewSourceStore(t.TempDir())))
	require.NoError(t, err)
	require.Equal(t, 2, srv.RegisterSources())

	corpus.status.Sources = []string{"b.pdf"}
	assert.Equal(t, 1, srv.RegisterSources())
	assert.Len(t, srv.registered, 1)
	assert.Contains(t, srv.registered, "b.pdf")
	assert.Equal(t, "source://b.pdf", SourceURI("b.pdf"))
}

func TestServer_InMemoryRoundTrip(t *testing.T) {
	srv, err := NewServer(newFakeCorpus())
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "Kündigungsfrist"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "a.pdf")
}

func TestMimeTypeForSource(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeTypeForSource("Urkunde.PDF"))
	assert.Equal(t, "text/markdown", MimeTypeForSource("notiz.md"))
	assert.Equal(t, "application/octet-stream", MimeTypeForSource("bild.png"))
}
