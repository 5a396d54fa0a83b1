package telemetry

import (
	"context"
	"sort"
	"time"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// TermCount is a query term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Summary aggregates the search log.
type Summary struct {
	TotalQueries        int                   `json:"total_queries"`
	ZeroResultCount     int                   `json:"zero_result_count"`
	ZeroResultQueries   []string              `json:"zero_result_queries"`
	TopTerms            []TermCount           `json:"top_terms"`
	LatencyDistribution map[LatencyBucket]int `json:"latency_distribution"`
}

// ZeroResultPercentage returns the share of queries without results.
func (s *Summary) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Summarize aggregates all entries. Terms are the tokenizer's, so stop
// words never rank; at most topN terms are returned.
func (l *SearchLog) Summarize(ctx context.Context, topN int) (*Summary, error) {
	entries, err := l.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}
	return summarize(entries, topN), nil
}

func summarize(entries []Entry, topN int) *Summary {
	s := &Summary{LatencyDistribution: make(map[LatencyBucket]int)}
	terms := make(map[string]int)
	seenZero := make(map[string]struct{})

	for _, e := range entries {
		s.TotalQueries++
		s.LatencyDistribution[LatencyToBucket(time.Duration(e.LatencyMs)*time.Millisecond)]++
		if e.ResultCount == 0 {
			s.ZeroResultCount++
			if _, ok := seenZero[e.Query]; !ok {
				seenZero[e.Query] = struct{}{}
				s.ZeroResultQueries = append(s.ZeroResultQueries, e.Query)
			}
		}
		for term := range store.TokenSet(e.Query) {
			terms[term]++
		}
	}

	for term, n := range terms {
		s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	if topN > 0 && len(s.TopTerms) > topN {
		s.TopTerms = s.TopTerms[:topN]
	}
	return s
}
