package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/aide/core/knowledge"
	"github.com/adalundhe/aide/core/search/hybrid"
)

type fakeSearcher struct {
	results []hybrid.Result
	limit   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]hybrid.Result, error) {
	f.limit = limit
	return f.results, nil
}

func TestSearchKnowledgeRendersResults(t *testing.T) {
	searcher := &fakeSearcher{results: []hybrid.Result{
		{ID: "c1", Text: "deadline is Friday", Source: "notes.md", Layer: knowledge.LayerCore},
	}}
	tool := NewSearchKnowledgeTool(searcher, 5)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "deadline"})
	require.NoError(t, err)
	assert.Contains(t, out, "deadline is Friday")
	assert.Contains(t, out, "notes.md")
	assert.Equal(t, 5, searcher.limit)
}

func TestSearchKnowledgeCustomLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	tool := NewSearchKnowledgeTool(searcher, 5)

	out, err := tool.Execute(context.Background(), map[string]any{
		"query": "anything",
		"limit": float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "no results found", out)
	assert.Equal(t, 2, searcher.limit)
}

func TestSearchKnowledgeRequiresQuery(t *testing.T) {
	tool := NewSearchKnowledgeTool(&fakeSearcher{}, 5)
	_, err := tool.Execute(context.Background(), map[string]any{"query": ""})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
