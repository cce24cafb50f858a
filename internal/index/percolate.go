package index

import (
	"context"

	"go.uber.org/zap"
)

const (
	opPercolate = "percolate"

	DefaultPercolatorField = "query"
	ContentField           = "content"
)

// PercolateRequest matches Document against the queries registered in Index.
type PercolateRequest struct {
	Index    string
	Field    string
	Document map[string]any
	Size     int
	// JustCount asks only for the number of matching queries.
	JustCount bool
	Source    []string
}

type PercolateResult struct {
	Total   int
	Matches []Hit
}

func (c *Client) Percolate(ctx context.Context, req *PercolateRequest) (*PercolateResult, error) {
	var resp searchResponse
	if err := c.postJSON(ctx, opPercolate, req.Index, searchEndpoint, req.Body(), &resp); err != nil {
		return nil, err
	}

	result := toResult(&resp, false)

	c.logger.Debug("percolation completed",
		zap.String("index", req.Index),
		zap.Bool("just_count", req.JustCount),
		zap.Int("total", result.Total),
		zap.Int("matches", len(result.Hits)),
	)

	return &PercolateResult{Total: result.Total, Matches: result.Hits}, nil
}

func (r *PercolateRequest) Body() map[string]any {
	field := r.Field
	if field == "" {
		field = DefaultPercolatorField
	}

	size := r.Size
	if r.JustCount {
		size = 0
	}

	body := map[string]any{
		"query": map[string]any{
			"percolate": map[string]any{
				"field":    field,
				"document": r.Document,
			},
		},
		"size":             size,
		"track_total_hits": true,
	}
	if len(r.Source) > 0 && !r.JustCount {
		body["_source"] = r.Source
	}

	return body
}
