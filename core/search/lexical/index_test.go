package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/aide/core/knowledge"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func chunk(id, text, source string, layer knowledge.Layer) knowledge.Chunk {
	return knowledge.Chunk{
		ID:   id,
		Text: text,
		Metadata: knowledge.Metadata{
			Source: source,
			Layer:  layer,
		},
	}
}

func TestSearchFindsBodyText(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("c1",
		"Name: John Doe\nEmail: john@example.com", "resume.txt", knowledge.LayerCore)))

	results, err := ix.Search(ctx, "email", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "john@example.com")
	assert.Equal(t, "resume.txt", results[0].Source)
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("c1", "some text", "a.txt", knowledge.LayerCore)))

	for _, q := range []string{"", "   ", "a b c"} {
		results, err := ix.Search(ctx, q, 5)
		require.NoError(t, err, "query %q", q)
		assert.Empty(t, results, "query %q", q)
	}
}

func TestSearchPrefixMatching(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("c1",
		"the quarterly forecast looks strong", "finance.md", knowledge.LayerCore)))

	results, err := ix.Search(ctx, "quart", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ID)
}

func TestSearchFuzzyMatching(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("c1",
		"kubernetes deployment checklist", "ops.md", knowledge.LayerCore)))

	// One character transposed; within the 20% tolerance.
	results, err := ix.Search(ctx, "kubernetse", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ID)
}

func TestSearchSourceBoost(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("body",
		"this mentions invoices in passing", "notes.md", knowledge.LayerCore)))
	require.NoError(t, ix.IndexChunk(ctx, chunk("source",
		"payment schedule for the quarter", "invoices-2024.pdf", knowledge.LayerCore)))

	results, err := ix.Search(ctx, "invoices", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "source", results[0].ID, "source-field match should outrank body match")
}

func TestSearchLayerScoping(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("conv",
		"project deadline is Friday", "conv", knowledge.LayerConversation)))
	require.NoError(t, ix.IndexChunk(ctx, chunk("gen",
		"project deadline is Friday", "gen", knowledge.LayerGenerated)))

	scoped, err := ix.SearchLayers(ctx, "deadline", 5, knowledge.LayerCore)
	require.NoError(t, err)
	assert.Empty(t, scoped)

	scoped, err = ix.SearchLayers(ctx, "deadline", 5, knowledge.LayerGenerated)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "gen", scoped[0].ID)

	all, err := ix.Search(ctx, "deadline", 5)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoveChunk(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("c1", "ephemeral note", "n.md", knowledge.LayerCore)))
	require.NoError(t, ix.RemoveChunk(ctx, "c1"))

	results, err := ix.Search(ctx, "ephemeral", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuild(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexChunk(ctx, chunk("old", "stale entry", "old.md", knowledge.LayerCore)))

	require.NoError(t, ix.Rebuild(ctx, []knowledge.Chunk{
		chunk("n1", "fresh content alpha", "a.md", knowledge.LayerCore),
		chunk("n2", "fresh content beta", "b.md", knowledge.LayerGenerated),
	}))

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	results, err := ix.Search(ctx, "stale", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClosedIndexErrors(t *testing.T) {
	ix, err := NewIndex()
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	assert.ErrorIs(t, ix.IndexChunk(context.Background(), chunk("c", "x y", "s", knowledge.LayerCore)), ErrIndexClosed)
	_, err = ix.Search(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, ErrIndexClosed)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, tokenize("Hello  WORLD"))
	assert.Empty(t, tokenize("a b c"))
	assert.Empty(t, tokenize(""))
}

func TestFuzzinessFor(t *testing.T) {
	assert.Equal(t, 0, fuzzinessFor("web"))
	assert.Equal(t, 1, fuzzinessFor("email"))
	assert.Equal(t, 2, fuzzinessFor("kubernetes"))
	assert.Equal(t, 2, fuzzinessFor("internationalization"))
}
