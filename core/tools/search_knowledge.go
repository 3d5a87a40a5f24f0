package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/adalundhe/aide/core/search/hybrid"
)

// KnowledgeSearcher is the retrieval surface the search tool needs.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]hybrid.Result, error)
}

// SearchKnowledgeTool queries the knowledge base.
type SearchKnowledgeTool struct {
	searcher     KnowledgeSearcher
	defaultLimit int
}

func NewSearchKnowledgeTool(searcher KnowledgeSearcher, defaultLimit int) *SearchKnowledgeTool {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &SearchKnowledgeTool{searcher: searcher, defaultLimit: defaultLimit}
}

func (t *SearchKnowledgeTool) Name() string { return "search_knowledge" }

func (t *SearchKnowledgeTool) Description() string {
	return "Search the knowledge base for relevant stored information"
}

func (t *SearchKnowledgeTool) Schema() map[string]any {
	return map[string]any{
		"query": "string, the search query",
		"limit": "integer, maximum results (optional)",
	}
}

type searchKnowledgeArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (t *SearchKnowledgeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var a searchKnowledgeArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrInvalidArgs)
	}
	if a.Limit <= 0 {
		a.Limit = t.defaultLimit
	}

	results, err := t.searcher.Search(ctx, a.Query, a.Limit)
	if err != nil {
		return "", fmt.Errorf("knowledge search: %w", err)
	}
	if len(results) == 0 {
		return "no results found", nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%s] %s\n%s\n", i+1, r.Layer, r.Source, r.Text)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
