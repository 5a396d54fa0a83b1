package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

func fakeOllama(t *testing.T, fail *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			if fail != nil && fail.Load() > 0 {
				fail.Add(-1)
				http.Error(w, "loading model", http.StatusServiceUnavailable)
				return
			}
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := ollamaEmbedResponse{Model: req.Model}
			for _, in := range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float64{float64(len(in)), 0.5, 0.25, 0})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func testOllamaConfig(host string) OllamaConfig {
	cfg := DefaultOllamaConfig()
	cfg.Host = host
	cfg.BatchSize = 2
	cfg.Retry = lexerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return cfg
}

func TestOllamaEmbedder_DetectsDimensionsAndBatches(t *testing.T) {
	srv := fakeOllama(t, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), testOllamaConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, 4, e.Dimensions())
	assert.Equal(t, "ollama/"+DefaultOllamaModel, e.ModelName())
	assert.True(t, e.Available(context.Background()))

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(3), vecs[2][0])
}

func TestOllamaEmbedder_RetriesServerErrors(t *testing.T) {
	var fail atomic.Int32
	srv := fakeOllama(t, &fail)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), testOllamaConfig(srv.URL))
	require.NoError(t, err)

	fail.Store(2)
	v, err := e.Embed(context.Background(), "Zession")
	require.NoError(t, err)
	assert.Equal(t, float32(7), v[0])
}

func TestOllamaEmbedder_Unreachable(t *testing.T) {
	srv := fakeOllama(t, nil)
	url := srv.URL
	srv.Close()

	cfg := testOllamaConfig(url)
	cfg.Retry.MaxRetries = 0
	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, lexerrors.IsRetryable(err))
}
