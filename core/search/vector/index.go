// Package vector provides the optional embedding-backed index. Vectors live
// in a sqlite file under the data directory, opened lazily on first write;
// when no embedding model is configured the index simply never exists and
// retrieval stays lexical-only.
package vector

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/viterin/vek/vek32"
	_ "modernc.org/sqlite"

	"github.com/adalundhe/aide/core/knowledge"
	"github.com/adalundhe/aide/core/providers"
)

var (
	// ErrIndexClosed indicates the index has been closed.
	ErrIndexClosed = errors.New("vector index closed")
)

// embeddingCacheSize bounds the content-hash embedding cache.
const embeddingCacheSize = 2048

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vectors (
	id        TEXT PRIMARY KEY,
	layer     TEXT NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL,
	dim       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_layer ON vectors(layer);
`

// Result is a scored similarity match.
type Result struct {
	ID     string
	Text   string
	Source string
	Layer  knowledge.Layer
	Score  float64
}

// ReindexReport summarizes a full rebuild. A partial rebuild is not fatal;
// the lexical path stays authoritative and failed chunks are just absent
// from similarity results.
type ReindexReport struct {
	Indexed int
	Failed  int
}

// Index stores chunk embeddings in sqlite and ranks by cosine similarity.
type Index struct {
	mu       sync.Mutex
	path     string
	db       *sql.DB
	embedder providers.Embedder
	cache    *lru.Cache[string, []float32]
	logger   *slog.Logger
	closed   bool
}

// NewIndex creates an index backed by the sqlite file at path. The file is
// not created until the first write.
func NewIndex(path string, embedder providers.Embedder, logger *slog.Logger) (*Index, error) {
	if embedder == nil {
		return nil, providers.ErrEmbeddingNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, []float32](embeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	return &Index{
		path:     path,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}, nil
}

// ensureOpenLocked opens the sqlite file and applies the schema. Callers
// hold ix.mu.
func (ix *Index) ensureOpenLocked() error {
	if ix.closed {
		return ErrIndexClosed
	}
	if ix.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", ix.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open vector db at %s: %w", ix.path, err)
	}
	// A single writer keeps sqlite happy without WAL contention tuning.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply vector schema: %w", err)
	}

	ix.db = db
	return nil
}

// Name identifies the index as a document store mutation hook.
func (ix *Index) Name() string { return "vector" }

// Embed maps text to a vector, consulting a bounded content-hash cache
// before calling the backend.
func (ix *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentKey(text)
	if vec, ok := ix.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	ix.cache.Add(key, vec)
	return vec, nil
}

// IndexChunk embeds and upserts one chunk.
func (ix *Index) IndexChunk(ctx context.Context, chunk knowledge.Chunk) error {
	return ix.Upsert(ctx, []knowledge.Chunk{chunk})
}

// Upsert embeds the given chunks (where not already carried on the chunk)
// and writes them in one transaction.
func (ix *Index) Upsert(ctx context.Context, chunks []knowledge.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := ix.fillEmbeddings(ctx, chunks); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureOpenLocked(); err != nil {
		return err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, layer, source, text, embedding, dim)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			layer = excluded.layer,
			source = excluded.source,
			text = excluded.text,
			embedding = excluded.embedding,
			dim = excluded.dim`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID,
			string(chunk.Metadata.Layer),
			chunk.Metadata.Source,
			chunk.Text,
			encodeVector(chunk.Embedding),
			len(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// fillEmbeddings batches one embedding call for every chunk that does not
// already carry a vector, consulting the cache first.
func (ix *Index) fillEmbeddings(ctx context.Context, chunks []knowledge.Chunk) error {
	var missing []int
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			continue
		}
		if vec, ok := ix.cache.Get(contentKey(chunks[i].Text)); ok {
			chunks[i].Embedding = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = chunks[i].Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	for j, i := range missing {
		chunks[i].Embedding = vectors[j]
		ix.cache.Add(contentKey(chunks[i].Text), vectors[j])
	}
	return nil
}

// RemoveChunk deletes a chunk's vector. A missing row is not an error.
func (ix *Index) RemoveChunk(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrIndexClosed
	}
	if ix.db == nil && !ix.fileExists() {
		return nil
	}
	if err := ix.ensureOpenLocked(); err != nil {
		return err
	}

	_, err := ix.db.ExecContext(ctx, "DELETE FROM vectors WHERE id = ?", id)
	return err
}

// Query ranks stored vectors by cosine similarity to vec and returns the
// top limit matches. A never-written index returns no results.
func (ix *Index) Query(ctx context.Context, vec []float32, limit int) ([]Result, error) {
	return ix.QueryLayers(ctx, vec, limit)
}

// QueryLayers ranks like Query but restricts candidates to the given
// layers; no layers means all layers.
func (ix *Index) QueryLayers(ctx context.Context, vec []float32, limit int, layers ...knowledge.Layer) ([]Result, error) {
	if len(vec) == 0 || limit <= 0 {
		return nil, nil
	}

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return nil, ErrIndexClosed
	}
	if ix.db == nil && !ix.fileExists() {
		ix.mu.Unlock()
		return nil, nil
	}
	if err := ix.ensureOpenLocked(); err != nil {
		ix.mu.Unlock()
		return nil, err
	}
	db := ix.db
	ix.mu.Unlock()

	rows, err := db.QueryContext(ctx, "SELECT id, layer, source, text, embedding FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	allowed := layerSet(layers)

	var results []Result
	for rows.Next() {
		var (
			id, layer, source, text string
			blob                    []byte
		)
		if err := rows.Scan(&id, &layer, &source, &text, &blob); err != nil {
			return nil, fmt.Errorf("vector scan: %w", err)
		}
		if allowed != nil && !allowed[knowledge.Layer(layer)] {
			continue
		}

		candidate := decodeVector(blob)
		if len(candidate) != len(vec) {
			// Dimension mismatch after an embedding model change; a
			// reindex clears these.
			ix.logger.Warn("skipping vector with stale dimension",
				"id", id, "dim", len(candidate), "want", len(vec))
			continue
		}

		results = append(results, Result{
			ID:     id,
			Text:   text,
			Source: source,
			Layer:  knowledge.Layer(layer),
			Score:  cosineSimilarity(vec, candidate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Layer.Priority() > results[j].Layer.Priority()
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of stored vectors; zero when the file has never
// been created.
func (ix *Index) Count() (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return 0, ErrIndexClosed
	}
	if ix.db == nil && !ix.fileExists() {
		return 0, nil
	}
	if err := ix.ensureOpenLocked(); err != nil {
		return 0, err
	}

	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("vector count: %w", err)
	}
	return n, nil
}

// Reindex drops the table and re-embeds every chunk. Per-chunk failures
// are counted and logged, never fatal.
func (ix *Index) Reindex(ctx context.Context, chunks []knowledge.Chunk) ReindexReport {
	var report ReindexReport

	ix.mu.Lock()
	if err := ix.ensureOpenLocked(); err != nil {
		ix.mu.Unlock()
		ix.logger.Warn("vector reindex unavailable", "error", err)
		report.Failed = len(chunks)
		return report
	}
	_, err := ix.db.ExecContext(ctx, "DELETE FROM vectors")
	ix.mu.Unlock()
	if err != nil {
		ix.logger.Warn("vector reindex truncate failed", "error", err)
		report.Failed = len(chunks)
		return report
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			report.Failed += len(chunks) - report.Indexed - report.Failed
			return report
		}
		if err := ix.Upsert(ctx, []knowledge.Chunk{chunk}); err != nil {
			ix.logger.Warn("vector reindex chunk failed", "id", chunk.ID, "error", err)
			report.Failed++
			continue
		}
		report.Indexed++
	}
	return report
}

// Close releases the database handle.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func (ix *Index) fileExists() bool {
	_, err := os.Stat(ix.path)
	return err == nil
}

func layerSet(layers []knowledge.Layer) map[knowledge.Layer]bool {
	if len(layers) == 0 {
		return nil
	}
	set := make(map[knowledge.Layer]bool, len(layers))
	for _, l := range layers {
		set[l] = true
	}
	return set
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// cosineSimilarity computes the normalized dot product of two same-length
// vectors; zero-norm vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	normA := math.Sqrt(float64(vek32.Dot(a, a)))
	normB := math.Sqrt(float64(vek32.Dot(b, b)))
	if normA == 0 || normB == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (normA * normB)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
