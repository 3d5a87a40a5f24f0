package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	arxivBaseURL        = "http://export.arxiv.org/api/query"
	defaultMaxResults   = 5
	literatureCapBytes  = 1 << 20
	literatureHTTPLimit = 20 * time.Second
)

// SearchLiteratureTool queries the arXiv Atom API for papers.
type SearchLiteratureTool struct {
	client  *http.Client
	baseURL string
}

func NewSearchLiteratureTool() *SearchLiteratureTool {
	return &SearchLiteratureTool{
		client:  &http.Client{Timeout: literatureHTTPLimit},
		baseURL: arxivBaseURL,
	}
}

func (t *SearchLiteratureTool) Name() string { return "search_literature" }

func (t *SearchLiteratureTool) Description() string {
	return "Search arXiv for academic papers matching a query"
}

func (t *SearchLiteratureTool) Schema() map[string]any {
	return map[string]any{
		"query":       "string, the search query",
		"max_results": "integer, maximum papers to return (optional)",
	}
}

type searchLiteratureArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// atomFeed is the subset of the arXiv Atom response we render.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	ID        string       `xml:"id"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func (t *SearchLiteratureTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var a searchLiteratureArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrInvalidArgs)
	}
	if a.MaxResults <= 0 {
		a.MaxResults = defaultMaxResults
	}

	params := url.Values{}
	params.Set("search_query", "all:"+a.Query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(a.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build arxiv request: %w", err)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("arxiv request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv request: status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, literatureCapBytes))
	if err != nil {
		return "", fmt.Errorf("read arxiv response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", fmt.Errorf("parse arxiv response: %w", err)
	}
	if len(feed.Entries) == 0 {
		return "no papers found", nil
	}

	return renderEntries(feed.Entries), nil
}

func renderEntries(entries []atomEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		names := make([]string, len(e.Authors))
		for j, author := range e.Authors {
			names[j] = author.Name
		}

		fmt.Fprintf(&sb, "%d. %s\n", i+1, collapseWhitespace(e.Title))
		if len(names) > 0 {
			fmt.Fprintf(&sb, "   authors: %s\n", strings.Join(names, ", "))
		}
		if e.Published != "" {
			fmt.Fprintf(&sb, "   published: %s\n", e.Published)
		}
		if e.ID != "" {
			fmt.Fprintf(&sb, "   link: %s\n", e.ID)
		}
		if summary := collapseWhitespace(e.Summary); summary != "" {
			fmt.Fprintf(&sb, "   %s\n", truncate(summary, 400))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
