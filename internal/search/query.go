package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a paragraph search.
type Params struct {
	Query  string
	BookID string // restrict to one book (empty = all)
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Result is a page of search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching paragraph with its deep link address.
type Hit struct {
	Score        float64 `json:"score"`
	BookID       string  `json:"book_id"`
	BookTitle    string  `json:"book_title,omitempty"`
	ChapterID    string  `json:"chapter_id"`
	ChapterTitle string  `json:"chapter_title,omitempty"`
	ParagraphID  string  `json:"pid"`
	Snippet      string  `json:"snippet,omitempty"`
}

// Search executes a paragraph search.
func (ix *Index) Search(ctx context.Context, params Params) (*Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(
		buildQuery(params), params.Limit, params.Offset, false)
	searchRequest.Fields = []string{
		"book_id", "book_title", "chapter_id", "chapter_title", "pid", "text",
	}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("text")

	searchResult, err := ix.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{Score: hit.Score}
		if v, ok := hit.Fields["book_id"].(string); ok {
			h.BookID = v
		}
		if v, ok := hit.Fields["book_title"].(string); ok {
			h.BookTitle = v
		}
		if v, ok := hit.Fields["chapter_id"].(string); ok {
			h.ChapterID = v
		}
		if v, ok := hit.Fields["chapter_title"].(string); ok {
			h.ChapterTitle = v
		}
		if v, ok := hit.Fields["pid"].(string); ok {
			h.ParagraphID = v
		}
		if fragments, ok := hit.Fragments["text"]; ok && len(fragments) > 0 {
			h.Snippet = fragments[0]
		} else if v, ok := hit.Fields["text"].(string); ok {
			h.Snippet = truncate(v, 200)
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

func buildQuery(params Params) query.Query {
	var base query.Query
	q := strings.TrimSpace(params.Query)
	if q == "" {
		base = bleve.NewMatchAllQuery()
	} else {
		match := bleve.NewMatchQuery(q)
		match.SetField("text")
		base = match
	}

	if params.BookID == "" {
		return base
	}

	bookFilter := bleve.NewTermQuery(params.BookID)
	bookFilter.SetField("book_id")
	return bleve.NewConjunctionQuery(base, bookFilter)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "…"
}
