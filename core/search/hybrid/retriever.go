// Package hybrid merges vector similarity results with lexical matches.
// The vector path is best-effort: any failure there degrades the query to
// lexical-only and trips a circuit breaker, it never surfaces to callers.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adalundhe/aide/core/config"
	"github.com/adalundhe/aide/core/knowledge"
	"github.com/adalundhe/aide/core/resilience"
	"github.com/adalundhe/aide/core/search/lexical"
	"github.com/adalundhe/aide/core/search/vector"
)

const (
	// MergedResultCap bounds the merged list at this multiple of the
	// requested limit.
	MergedResultCap = 2

	cacheNumCounters = 1e5
	cacheMaxCost     = 1 << 24
	cacheBufferItems = 64
	defaultCacheTTL  = 30 * time.Second
)

// Origin records which index produced a merged result.
type Origin string

const (
	OriginVector  Origin = "vector"
	OriginLexical Origin = "lexical"
)

// Result is one merged retrieval hit.
type Result struct {
	ID     string
	Text   string
	Source string
	Layer  knowledge.Layer
	Score  float64
	Origin Origin
}

// VectorSearcher is the similarity side of retrieval.
type VectorSearcher interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	QueryLayers(ctx context.Context, vec []float32, limit int, layers ...knowledge.Layer) ([]vector.Result, error)
}

// LexicalSearcher is the keyword side of retrieval.
type LexicalSearcher interface {
	SearchLayers(ctx context.Context, query string, limit int, layers ...knowledge.Layer) ([]lexical.Result, error)
}

// Retriever runs both retrieval paths and merges the results. The
// capability is resolved once from configuration; a retriever built
// lexical-only never touches the vector side.
type Retriever struct {
	capability config.RetrievalCapability
	lexical    LexicalSearcher
	vector     VectorSearcher
	breaker    *resilience.Breaker
	cache      *ristretto.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// RetrieverConfig assembles a Retriever.
type RetrieverConfig struct {
	Capability config.RetrievalCapability
	Lexical    LexicalSearcher
	Vector     VectorSearcher
	Breaker    *resilience.Breaker
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

// NewRetriever builds a retriever. Vector may be nil only when the
// capability is lexical-only.
func NewRetriever(cfg RetrieverConfig) (*Retriever, error) {
	if cfg.Lexical == nil {
		return nil, fmt.Errorf("hybrid retriever: lexical searcher is required")
	}
	if cfg.Capability == config.RetrievalHybrid && cfg.Vector == nil {
		return nil, fmt.Errorf("hybrid retriever: hybrid capability without a vector searcher")
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewBreaker("vector-search", resilience.DefaultBreakerConfig())
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	return &Retriever{
		capability: cfg.Capability,
		lexical:    cfg.Lexical,
		vector:     cfg.Vector,
		breaker:    cfg.Breaker,
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		logger:     cfg.Logger,
	}, nil
}

// Capability reports the retrieval mode the retriever was built with.
func (r *Retriever) Capability() config.RetrievalCapability { return r.capability }

// Search retrieves across all layers.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return r.SearchLayers(ctx, query, limit)
}

// SearchLayers retrieves scoped to the given layers; no layers means all.
// Both paths coming back empty is an empty result, never an error.
func (r *Retriever) SearchLayers(ctx context.Context, query string, limit int, layers ...knowledge.Layer) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	key := cacheKey(query, limit, layers)
	if cached, found := r.cache.Get(key); found {
		if results, ok := cached.([]Result); ok {
			return append([]Result(nil), results...), nil
		}
	}

	vectorResults := r.vectorSearch(ctx, query, limit, layers)

	lexicalResults, err := r.lexical.SearchLayers(ctx, query, limit, layers...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	merged := merge(vectorResults, lexicalResults, limit)

	r.cache.SetWithTTL(key, merged, int64(len(merged)+1), r.cacheTTL)
	return merged, nil
}

// vectorSearch runs the similarity path. Every failure degrades to an
// empty result and feeds the breaker; an open breaker skips the path.
func (r *Retriever) vectorSearch(ctx context.Context, query string, limit int, layers []knowledge.Layer) []vector.Result {
	if r.capability != config.RetrievalHybrid || r.vector == nil {
		return nil
	}
	if !r.breaker.Allow() {
		r.logger.Debug("vector path skipped, breaker open")
		return nil
	}

	vec, err := r.vector.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, falling back to lexical", "error", err)
		r.breaker.RecordResult(false)
		return nil
	}

	results, err := r.vector.QueryLayers(ctx, vec, limit, layers...)
	if err != nil {
		r.logger.Warn("vector search failed, falling back to lexical", "error", err)
		r.breaker.RecordResult(false)
		return nil
	}

	r.breaker.RecordResult(true)
	return results
}

// merge puts vector results first in similarity order, then appends
// lexical results whose exact text is not already present. The merged
// list is capped at MergedResultCap times the limit and never re-scored.
func merge(vectorResults []vector.Result, lexicalResults []lexical.Result, limit int) []Result {
	maxResults := MergedResultCap * limit

	merged := make([]Result, 0, len(vectorResults)+len(lexicalResults))
	seen := make(map[string]bool, len(vectorResults))

	for _, v := range vectorResults {
		if seen[v.Text] {
			continue
		}
		seen[v.Text] = true
		merged = append(merged, Result{
			ID:     v.ID,
			Text:   v.Text,
			Source: v.Source,
			Layer:  v.Layer,
			Score:  v.Score,
			Origin: OriginVector,
		})
		if len(merged) >= maxResults {
			return merged
		}
	}

	// Equal lexical scores break toward the higher-priority layer.
	sort.SliceStable(lexicalResults, func(i, j int) bool {
		if lexicalResults[i].Score != lexicalResults[j].Score {
			return lexicalResults[i].Score > lexicalResults[j].Score
		}
		return lexicalResults[i].Layer.Priority() > lexicalResults[j].Layer.Priority()
	})

	for _, l := range lexicalResults {
		if seen[l.Text] {
			continue
		}
		seen[l.Text] = true
		merged = append(merged, Result{
			ID:     l.ID,
			Text:   l.Text,
			Source: l.Source,
			Layer:  l.Layer,
			Score:  l.Score,
			Origin: OriginLexical,
		})
		if len(merged) >= maxResults {
			break
		}
	}

	return merged
}

func cacheKey(query string, limit int, layers []knowledge.Layer) string {
	var sb strings.Builder
	sb.WriteString(query)
	fmt.Fprintf(&sb, "|%d", limit)
	for _, l := range layers {
		sb.WriteByte('|')
		sb.WriteString(string(l))
	}
	return sb.String()
}
