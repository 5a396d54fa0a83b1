package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/embed"
	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/mcp"
	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/session"
	"github.com/Aman-CERP/lexmind/internal/store"
	"github.com/Aman-CERP/lexmind/internal/telemetry"
	"github.com/Aman-CERP/lexmind/internal/watcher"
)

// Integration tests: corpus folder to session to MCP tools, with every
// sparse and dense backend.

var corpusFiles = map[string]string{
	"a_vertrag.txt": "§ 1 Vertragsparteien\nZwischen der Muster AG und der Beispiel GmbH.\n" +
		"§ 2 Kündigung\nDie Kündigungsfrist beträgt drei Monate zum Quartalsende.\n",
	"b_klage.md": "Art. 1 Rechtsbegehren\nDie Klägerin beantragt, die Beklagte zur Zahlung zu verurteilen.\n",
	"c_urkunde.txt": "Artikel 1 Beurkundung\nDer Notar bestätigt die Unterschriften.\n",
}

func writeCorpus(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range corpusFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.Corpus.Path = filepath.Join(root, "docs")
	cfg.Storage.DataDir = filepath.Join(root, ".lexmind")
	cfg.Embeddings.Dimensions = 64
	cfg.Search.SparseNormalization = search.NormalizationMax
	writeCorpus(t, cfg.Corpus.Path)
	return cfg
}

func openSession(t *testing.T, cfg *config.Config) *session.Session {
	t.Helper()
	embedder := embed.NewStaticEmbedder(cfg.Embeddings.Dimensions)
	sess, err := session.New(context.Background(), cfg, embedder)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sess.Close()
		_ = embedder.Close()
	})
	return sess
}

func TestCorpusSearch_AllBackends(t *testing.T) {
	sparse := []string{store.SparseBackendMemory, store.SparseBackendSQLite, store.SparseBackendBleve}
	dense := []string{store.DenseBackendFlat, store.DenseBackendHNSW}

	for _, sb := range sparse {
		for _, db := range dense {
			t.Run(fmt.Sprintf("%s_%s", sb, db), func(t *testing.T) {
				// Given: a corpus indexed with the backend pair
				cfg := testConfig(t)
				cfg.Search.SparseBackend = sb
				cfg.Search.DenseBackend = db
				sess := openSession(t, cfg)

				st := sess.Status()
				require.False(t, st.Inert)
				assert.Equal(t, 4, st.Chunks)
				assert.Equal(t, []string{"a_vertrag.txt", "b_klage.md", "c_urkunde.txt"}, st.Sources)

				// When: searching by keyword only
				alpha := 0.0
				resp, err := sess.Search(context.Background(), "Kündigungsfrist", search.Options{Alpha: &alpha})
				require.NoError(t, err)

				// Then: exactly the notice period section matches
				require.Len(t, resp.Results, 1)
				top := resp.Results[0]
				assert.Equal(t, "a_vertrag.txt", top.Chunk.Source)
				assert.Equal(t, "§ 2 Kündigung", top.Chunk.Heading)
				assert.Equal(t, "Verträge", top.Chunk.Category)
				assert.InDelta(t, 1.0, top.Score, 1e-9)
				assert.Empty(t, resp.Degraded)
			})
		}
	}
}

func TestCorpusSearch_CategoryFilter(t *testing.T) {
	sess := openSession(t, testConfig(t))

	alpha := 0.0
	resp, err := sess.Search(context.Background(), "Kündigungsfrist", search.Options{Alpha: &alpha, Category: "Klagen"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestMCPServer_OverSession(t *testing.T) {
	// Given: an MCP server over a session with a search log and sources
	cfg := testConfig(t)
	sess := openSession(t, cfg)

	log, err := telemetry.OpenSearchLog(filepath.Join(cfg.Storage.DataDir, telemetry.LogFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	srv, err := mcp.NewServer(sess,
		mcp.WithSearchLog(log),
		mcp.WithSources(ingest.NewSourceStore(cfg.Corpus.Path)))
	require.NoError(t, err)
	assert.Equal(t, 3, srv.RegisterSources())

	// When: calling the search tool
	res, err := srv.CallTool(context.Background(), "search", map[string]any{
		"query": "Kündigungsfrist", "alpha": 0.0, "k": float64(2),
	})
	require.NoError(t, err)

	// Then: the result points at the source file and the search is logged
	out := res.(mcp.SearchOutput)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "a_vertrag.txt", out.Results[0].Source)
	assert.Contains(t, mcp.FormatSearchResults(out), "a_vertrag.txt")

	entries, err := log.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].K)
	assert.Equal(t, 1, entries[0].ResultCount)

	status, err := srv.CallTool(context.Background(), "corpus_status", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, status.(mcp.CorpusStatusOutput).Chunks)

	saved, err := session.LoadStatus(cfg.Storage.DataDir)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Generation)
}

func TestWatcher_ReloadsSessionOnChange(t *testing.T) {
	// Given: a watched session
	cfg := testConfig(t)
	sess := openSession(t, cfg)

	w, err := watcher.NewCorpusWatcher(cfg.Corpus.Path, watcher.Options{
		DebounceWindow: 50 * time.Millisecond,
		PollInterval:   50 * time.Millisecond,
		ForcePolling:   true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx, w, sess)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the poller its first snapshot.
	time.Sleep(150 * time.Millisecond)

	// When: a new document is added
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Corpus.Path, "d_miete.txt"),
		[]byte("§ 1 Mietzins\nDer Mietzins ist monatlich im Voraus zu zahlen.\n"), 0o644))

	// Then: a new generation includes it
	require.Eventually(t, func() bool {
		st := sess.Status()
		return st.Generation >= 2 && st.Chunks == 5
	}, 5*time.Second, 25*time.Millisecond)

	alpha := 0.0
	resp, err := sess.Search(context.Background(), "Mietzins", search.Options{Alpha: &alpha})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "d_miete.txt", resp.Results[0].Chunk.Source)
}
