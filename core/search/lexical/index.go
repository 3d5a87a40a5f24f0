// Package lexical provides the in-memory full-text index over knowledge
// chunks. It wraps a Bleve memory-only index with fuzzy and prefix matching
// and is rebuilt in full from the document store at process start; only the
// underlying chunks are durable.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/adalundhe/aide/core/knowledge"
)

var (
	// ErrIndexClosed indicates the index has been closed.
	ErrIndexClosed = errors.New("lexical index closed")
)

const (
	// SourceBoost weights matches in the source field over body text.
	SourceBoost = 2.0

	// MaxFuzziness caps the edit distance Bleve will consider.
	MaxFuzziness = 2

	// fuzzinessRatio approximates a 20% edit-distance tolerance per token.
	fuzzinessRatio = 5
)

// Result is a scored lexical match.
type Result struct {
	ID     string
	Text   string
	Source string
	Layer  knowledge.Layer
	Score  float64
}

// chunkDocument is the shape indexed into Bleve.
type chunkDocument struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Layer  string `json:"layer"`
	Tags   string `json:"tags"`
}

// Index is the lexical full-text index.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// NewIndex creates an empty memory-only index.
func NewIndex() (*Index, error) {
	idx, err := newBleveIndex()
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func newBleveIndex() (bleve.Index, error) {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("source", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("tags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("layer", bleve.NewKeywordFieldMapping())
	indexMapping.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return idx, nil
}

// Name identifies the index as a document store mutation hook.
func (ix *Index) Name() string { return "lexical" }

// IndexChunk adds or replaces one chunk in the index.
func (ix *Index) IndexChunk(_ context.Context, chunk knowledge.Chunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrIndexClosed
	}

	return ix.index.Index(chunk.ID, chunkDocument{
		Text:   chunk.Text,
		Source: chunk.Metadata.Source,
		Layer:  string(chunk.Metadata.Layer),
		Tags:   strings.Join(chunk.Metadata.Tags, " "),
	})
}

// RemoveChunk deletes a chunk from the index.
func (ix *Index) RemoveChunk(_ context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrIndexClosed
	}
	return ix.index.Delete(id)
}

// Rebuild drops the index and re-indexes the given chunks in one batch.
// Called at startup with the full document store contents.
func (ix *Index) Rebuild(ctx context.Context, chunks []knowledge.Chunk) error {
	fresh, err := newBleveIndex()
	if err != nil {
		return err
	}

	batch := fresh.NewBatch()
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(chunk.ID, chunkDocument{
			Text:   chunk.Text,
			Source: chunk.Metadata.Source,
			Layer:  string(chunk.Metadata.Layer),
			Tags:   strings.Join(chunk.Metadata.Tags, " "),
		}); err != nil {
			return fmt.Errorf("batch index chunk %s: %w", chunk.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("commit rebuild batch: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		fresh.Close()
		return ErrIndexClosed
	}
	old := ix.index
	ix.index = fresh
	old.Close()

	return nil
}

// Search runs a fuzzy, prefix-aware keyword query across every layer.
func (ix *Index) Search(ctx context.Context, queryText string, limit int) ([]Result, error) {
	return ix.SearchLayers(ctx, queryText, limit)
}

// SearchLayers runs a keyword query scoped to the given layers; no layers
// means all layers. An empty query, or a query with no usable tokens,
// returns an empty result set rather than an error.
func (ix *Index) SearchLayers(ctx context.Context, queryText string, limit int, layers ...knowledge.Layer) ([]Result, error) {
	tokens := tokenize(queryText)
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := buildQuery(tokens, layers)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"text", "source", "layer"}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrIndexClosed
	}

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["text"].(string); ok {
			r.Text = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			r.Source = v
		}
		if v, ok := hit.Fields["layer"].(string); ok {
			r.Layer = knowledge.Layer(v)
		}
		results = append(results, r)
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, ErrIndexClosed
	}
	return ix.index.DocCount()
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.index.Close()
}

// tokenize splits on whitespace and drops stopword-length tokens.
func tokenize(queryText string) []string {
	fields := strings.Fields(strings.ToLower(queryText))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 1 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// fuzzinessFor bounds the per-token edit distance at roughly 20% of the
// token length, capped at Bleve's maximum.
func fuzzinessFor(token string) int {
	f := len([]rune(token)) / fuzzinessRatio
	if f > MaxFuzziness {
		return MaxFuzziness
	}
	return f
}

// buildQuery assembles a disjunction per token: fuzzy match and prefix on
// the body text, plus boosted variants against the source field.
func buildQuery(tokens []string, layers []knowledge.Layer) query.Query {
	disjunction := bleve.NewDisjunctionQuery()

	for _, token := range tokens {
		fuzziness := fuzzinessFor(token)

		textMatch := bleve.NewMatchQuery(token)
		textMatch.SetField("text")
		textMatch.SetFuzziness(fuzziness)
		disjunction.AddQuery(textMatch)

		textPrefix := bleve.NewPrefixQuery(token)
		textPrefix.SetField("text")
		disjunction.AddQuery(textPrefix)

		sourceMatch := bleve.NewMatchQuery(token)
		sourceMatch.SetField("source")
		sourceMatch.SetFuzziness(fuzziness)
		sourceMatch.SetBoost(SourceBoost)
		disjunction.AddQuery(sourceMatch)

		sourcePrefix := bleve.NewPrefixQuery(token)
		sourcePrefix.SetField("source")
		sourcePrefix.SetBoost(SourceBoost)
		disjunction.AddQuery(sourcePrefix)

		tagsMatch := bleve.NewMatchQuery(token)
		tagsMatch.SetField("tags")
		disjunction.AddQuery(tagsMatch)
	}

	if len(layers) == 0 {
		return disjunction
	}

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(disjunction)
	boolQuery.AddMust(buildLayerFilter(layers))
	return boolQuery
}

func buildLayerFilter(layers []knowledge.Layer) query.Query {
	if len(layers) == 1 {
		term := bleve.NewTermQuery(string(layers[0]))
		term.SetField("layer")
		return term
	}

	filter := bleve.NewDisjunctionQuery()
	for _, layer := range layers {
		term := bleve.NewTermQuery(string(layer))
		term.SetField("layer")
		filter.AddQuery(term)
	}
	return filter
}
