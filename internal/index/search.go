package index

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const (
	searchEndpoint = "_search"
	opSearch       = "search"

	minTermFreq = 1
	minDocFreq  = 1
)

// Similarity scores documents by overlap of Field with Values, weighted by Boost.
type Similarity struct {
	Field  string
	Values []string
	Boost  float64
}

// TermsFilter keeps documents whose Field holds any of Values. Filters never affect scores.
type TermsFilter struct {
	Field  string
	Values []string
}

type Sort struct {
	Field      string
	Descending bool
}

type Query struct {
	Should             []Similarity
	MinimumShouldMatch int
	Filters            []TermsFilter
	// RescaleScript, when set, wraps the query in a script_score with this source.
	RescaleScript string
}

type SearchRequest struct {
	Index  string
	Query  Query
	Size   int
	Sort   []Sort
	Source []string
}

type SearchResult struct {
	Total int
	Hits  []Hit
}

type Hit struct {
	ID    string
	Score float64
	// Rescaled reports that Score already went through the rescale script.
	Rescaled bool
	Source   map[string]any
}

type searchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total total `json:"total"`
		Hits  []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// total accepts both `"total": 3` and `"total": {"value": 3, "relation": "eq"}`.
type total int

func (t *total) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = total(n)
		return nil
	}

	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding hits total: %w", err)
	}
	*t = total(obj.Value)

	return nil
}

func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	var resp searchResponse
	if err := c.postJSON(ctx, opSearch, req.Index, searchEndpoint, req.Body(), &resp); err != nil {
		return nil, err
	}

	result := toResult(&resp, req.Query.RescaleScript != "")

	c.logger.Debug("search completed",
		zap.String("index", req.Index),
		zap.Int("took_ms", resp.Took),
		zap.Int("total", result.Total),
		zap.Int("hits", len(result.Hits)),
	)

	return result, nil
}

func toResult(resp *searchResponse, rescaled bool) *SearchResult {
	result := &SearchResult{
		Total: int(resp.Hits.Total),
		Hits:  make([]Hit, 0, len(resp.Hits.Hits)),
	}

	for _, h := range resp.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source, Rescaled: rescaled}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}

	return result
}

// Body renders the request in the index query DSL.
func (r *SearchRequest) Body() map[string]any {
	body := map[string]any{
		"query": r.Query.DSL(),
	}
	if r.Size > 0 {
		body["size"] = r.Size
	}
	if len(r.Sort) > 0 {
		sorts := make([]map[string]any, 0, len(r.Sort))
		for _, s := range r.Sort {
			order := "asc"
			if s.Descending {
				order = "desc"
			}
			sorts = append(sorts, map[string]any{s.Field: map[string]any{"order": order}})
		}
		body["sort"] = sorts
	}
	if len(r.Source) > 0 {
		body["_source"] = r.Source
	}

	return body
}

func (q Query) DSL() map[string]any {
	boolQuery := map[string]any{}

	if len(q.Should) > 0 {
		should := make([]map[string]any, 0, len(q.Should))
		for _, s := range q.Should {
			should = append(should, map[string]any{
				"more_like_this": map[string]any{
					"fields":               []string{s.Field},
					"like":                 s.Values,
					"min_term_freq":        minTermFreq,
					"min_doc_freq":         minDocFreq,
					"max_query_terms":      len(s.Values),
					"minimum_should_match": 1,
					"boost":                s.Boost,
				},
			})
		}
		boolQuery["should"] = should
		if q.MinimumShouldMatch > 0 {
			boolQuery["minimum_should_match"] = q.MinimumShouldMatch
		}
	}

	if len(q.Filters) > 0 {
		filters := make([]map[string]any, 0, len(q.Filters))
		for _, f := range q.Filters {
			filters = append(filters, map[string]any{
				"terms": map[string]any{f.Field: f.Values},
			})
		}
		boolQuery["filter"] = filters
	}

	var query map[string]any
	if len(boolQuery) == 0 {
		query = map[string]any{"match_all": map[string]any{}}
	} else {
		query = map[string]any{"bool": boolQuery}
	}

	if q.RescaleScript == "" {
		return query
	}

	return map[string]any{
		"script_score": map[string]any{
			"query":  query,
			"script": map[string]any{"source": q.RescaleScript},
		},
	}
}
