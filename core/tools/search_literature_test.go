package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Retrieval  Augmented
      Generation Survey</title>
    <summary>A survey of retrieval augmented generation techniques.</summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Researcher</name></author>
    <author><name>B. Scientist</name></author>
  </entry>
</feed>`

func TestSearchLiteratureParsesFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	tool := NewSearchLiteratureTool()
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":       "retrieval augmented generation",
		"max_results": float64(3),
	})
	require.NoError(t, err)

	assert.Equal(t, "all:retrieval augmented generation", gotQuery)
	assert.Contains(t, out, "Retrieval Augmented Generation Survey")
	assert.Contains(t, out, "A. Researcher, B. Scientist")
	assert.Contains(t, out, "arxiv.org/abs/2401.00001v1")
}

func TestSearchLiteratureEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer server.Close()

	tool := NewSearchLiteratureTool()
	tool.baseURL = server.URL

	out, err := tool.Execute(context.Background(), map[string]any{"query": "nothing"})
	require.NoError(t, err)
	assert.Equal(t, "no papers found", out)
}

func TestSearchLiteratureServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tool := NewSearchLiteratureTool()
	tool.baseURL = server.URL

	_, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	assert.Error(t, err)
}

func TestSearchLiteratureRequiresQuery(t *testing.T) {
	tool := NewSearchLiteratureTool()
	_, err := tool.Execute(context.Background(), map[string]any{"query": " "})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
