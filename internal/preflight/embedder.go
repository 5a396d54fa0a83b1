package preflight

import (
	"context"
	"fmt"
	"time"
)

// EmbedderProbeTimeout bounds the embedder check.
const EmbedderProbeTimeout = 15 * time.Second

// CheckEmbedder builds the configured embedder and embeds a probe text.
// There is no fallback provider, so a failure is critical.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	ctx, cancel := context.WithTimeout(ctx, EmbedderProbeTimeout)
	defer cancel()

	e, err := c.newEmbedder(ctx, c.cfg.Embeddings)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s provider unavailable: %v", c.cfg.Embeddings.Provider, err)
		return result
	}
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(ctx, "Kündigungsfrist")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s failed to embed: %v", e.ModelName(), err)
		return result
	}
	if len(vec) != e.Dimensions() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s returned %d dimensions, expected %d", e.ModelName(), len(vec), e.Dimensions())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dimensions)", e.ModelName(), e.Dimensions())
	return result
}
