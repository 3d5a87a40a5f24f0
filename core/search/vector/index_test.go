package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/aide/core/knowledge"
)

// fakeEmbedder maps known texts to fixed vectors and counts backend calls.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	fail    bool
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := f.vectors[t]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func newTestIndex(t *testing.T, emb *fakeEmbedder) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	ix, err := NewIndex(path, emb, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix, path
}

func vchunk(id, text string, layer knowledge.Layer) knowledge.Chunk {
	return knowledge.Chunk{
		ID:   id,
		Text: text,
		Metadata: knowledge.Metadata{
			Source: id + ".txt",
			Layer:  layer,
		},
	}
}

func TestLazyCreation(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	ix, path := newTestIndex(t, emb)
	ctx := context.Background()

	// Reads against a never-written index succeed with no file on disk.
	results, err := ix.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should not exist before first write")

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{vchunk("c1", "hello", knowledge.LayerCore)}))
	_, err = os.Stat(path)
	assert.NoError(t, err, "file should exist after first write")
}

func TestQueryRanksBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"close":   {0.9, 0.1, 0},
		"closer":  {1, 0, 0},
		"far off": {0, 1, 0},
	}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{
		vchunk("a", "close", knowledge.LayerCore),
		vchunk("b", "closer", knowledge.LayerCore),
		vchunk("c", "far off", knowledge.LayerCore),
	}))

	results, err := ix.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "a", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryLayerScoping(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"same text": {1, 0, 0},
	}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{
		vchunk("core", "same text", knowledge.LayerCore),
		vchunk("conv", "same text", knowledge.LayerConversation),
	}))

	results, err := ix.QueryLayers(ctx, []float32{1, 0, 0}, 5, knowledge.LayerCore)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "core", results[0].ID)
}

func TestEqualScoreLayerTieBreak(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"identical": {1, 0, 0},
	}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{
		vchunk("conv", "identical", knowledge.LayerConversation),
		vchunk("core", "identical", knowledge.LayerCore),
		vchunk("gen", "identical", knowledge.LayerGenerated),
	}))

	results, err := ix.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "core", results[0].ID)
	assert.Equal(t, "gen", results[1].ID)
	assert.Equal(t, "conv", results[2].ID)
}

func TestRemoveChunk(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"x": {1, 0, 0}}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	// Removing from a never-created index is a no-op.
	require.NoError(t, ix.RemoveChunk(ctx, "ghost"))

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{vchunk("c1", "x", knowledge.LayerCore)}))
	require.NoError(t, ix.RemoveChunk(ctx, "c1"))

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertReplacesExisting(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"old": {1, 0, 0},
		"new": {0, 1, 0},
	}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{vchunk("c1", "old", knowledge.LayerCore)}))
	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{vchunk("c1", "new", knowledge.LayerCore)}))

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := ix.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
}

func TestEmbeddingCacheAvoidsRepeatCalls(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"hello": {1, 0, 0}}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	_, err := ix.Embed(ctx, "hello")
	require.NoError(t, err)
	_, err = ix.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)

	// Upsert of the same text hits the cache too.
	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{vchunk("c1", "hello", knowledge.LayerCore)}))
	assert.Equal(t, 1, emb.calls)
}

func TestReindexCountsFailures(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0, 0}, "b": {0, 1, 0}}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	report := ix.Reindex(ctx, []knowledge.Chunk{
		vchunk("c1", "a", knowledge.LayerCore),
		vchunk("c2", "b", knowledge.LayerCore),
	})
	assert.Equal(t, 2, report.Indexed)
	assert.Zero(t, report.Failed)

	emb.fail = true
	report = ix.Reindex(ctx, []knowledge.Chunk{
		vchunk("c1", "unseen text", knowledge.LayerCore),
	})
	assert.Zero(t, report.Indexed)
	assert.Equal(t, 1, report.Failed)
}

func TestDimensionMismatchSkipped(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"short": {1, 0},
		"full":  {1, 0, 0},
	}}
	ix, _ := newTestIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []knowledge.Chunk{
		vchunk("stale", "short", knowledge.LayerCore),
		vchunk("fresh", "full", knowledge.LayerCore),
	}))

	results, err := ix.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fresh", results[0].ID)
}

func TestClosedIndexErrors(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	ix, _ := newTestIndex(t, emb)
	require.NoError(t, ix.Close())

	err := ix.Upsert(context.Background(), []knowledge.Chunk{vchunk("c", "x", knowledge.LayerCore)})
	assert.ErrorIs(t, err, ErrIndexClosed)
	_, err = ix.Query(context.Background(), []float32{1}, 5)
	assert.ErrorIs(t, err, ErrIndexClosed)
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
}
