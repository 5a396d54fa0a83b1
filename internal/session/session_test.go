package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/embed"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/search"
)

func testConfig(t *testing.T, corpusDir string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Corpus.Path = corpusDir
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newSession(t *testing.T, cfg *config.Config) (*Session, error) {
	t.Helper()
	s, err := New(context.Background(), cfg, embed.NewStaticEmbedder(64))
	t.Cleanup(func() { _ = s.Close() })
	return s, err
}

func TestNew_BuildsSearchableGeneration(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "§ 1 Kündigung\nDie Kündigungsfrist beträgt drei Monate.")
	writeDoc(t, dir, "b.txt", "§ 1 Kaufpreis\nDer Kaufpreis ist sofort fällig.")

	s, err := newSession(t, testConfig(t, dir))
	require.NoError(t, err)
	assert.False(t, s.Inert())

	resp, err := s.Search(context.Background(), "Kündigungsfrist", search.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "a.txt", resp.Results[0].Chunk.Source)

	st := s.Status()
	assert.Equal(t, 1, st.Generation)
	assert.Equal(t, 2, st.Chunks)
	assert.Equal(t, []string{"a.txt", "b.txt"}, st.Sources)
	assert.Equal(t, "static-64", st.Model)
	assert.Empty(t, st.LastError)
}

func TestNew_WithProgressReportsEmbedding(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "§ 1 Kündigung\nDie Kündigungsfrist beträgt drei Monate.")

	var last [2]int
	s, err := New(context.Background(), testConfig(t, dir), embed.NewStaticEmbedder(16),
		WithProgress(func(done, total int) { last = [2]int{done, total} }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, [2]int{1, 1}, last)
}

func TestNew_MissingFolderIsInert(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "fehlt"))

	s, buildErr := newSession(t, cfg)
	require.Error(t, buildErr)
	assert.Equal(t, lexerrors.ErrCodeCorpusDirMissing, lexerrors.GetCode(buildErr))
	assert.True(t, s.Inert())
	assert.Nil(t, s.Corpus())

	resp, err := s.Search(context.Background(), "Vertrag", search.Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	st := s.Status()
	assert.True(t, st.Inert)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, buildErr, s.Err())
}

func TestReload_SwapsGeneration(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "§ 1 Zweck\nDie Gesellschaft bezweckt den Handel.")

	s, err := newSession(t, testConfig(t, dir))
	require.NoError(t, err)
	require.Equal(t, 1, s.Status().Chunks)

	writeDoc(t, dir, "b.txt", "§ 1 Dienstbarkeit\nDas Wegrecht wird eingeräumt.")
	require.NoError(t, s.Reload(context.Background()))

	st := s.Status()
	assert.Equal(t, 2, st.Generation)
	assert.Equal(t, 2, st.Chunks)
}

func TestReload_FailureKeepsPreviousGeneration(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeDoc(t, dir, "a.txt", "§ 1 Zweck\nText.")

	s, err := newSession(t, testConfig(t, dir))
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, s.Reload(context.Background()))

	assert.False(t, s.Inert())
	st := s.Status()
	assert.Equal(t, 1, st.Chunks)
	assert.NotEmpty(t, st.LastError)
}

func TestSearch_ConcurrentWithReload(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "§ 1 Vertragsstrafe\nDie Konventionalstrafe beträgt CHF 500.")

	s, err := newSession(t, testConfig(t, dir))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := s.Search(context.Background(), "Vertragsstrafe", search.Options{})
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		assert.NoError(t, s.Reload(context.Background()))
	}
	wg.Wait()
	assert.Equal(t, 4, s.Status().Generation)
}

func TestStatus_PersistedAfterBuild(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "Art. 1 Statuten\nDie Satzung regelt die Organisation.")
	cfg := testConfig(t, dir)

	_, err := newSession(t, cfg)
	require.NoError(t, err)

	st, err := LoadStatus(cfg.Storage.DataDir)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Chunks)
	assert.Equal(t, map[string]int{"Urkunden": 1}, st.Categories)
}

func TestLoadStatus_Missing(t *testing.T) {
	_, err := LoadStatus(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), StatusFileName)
}
