package index

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/metrics"
)

func TestSearchSendsQueryAndDecodesHits(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
		gotUser string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"took": 3,
			"hits": {
				"total": {"value": 2, "relation": "eq"},
				"hits": [
					{"_id": "occ1", "_score": 50, "_source": {"prefLabel": "Baker", "relatedOccupationId": "catX"}},
					{"_id": "occ2", "_score": 12.5, "_source": {"prefLabel": "Cook"}}
				]
			}
		}`)
	}))
	defer srv.Close()

	client := New(zaptest.NewLogger(t), srv.URL+"/", metrics.New())
	client.Username = "elastic"
	client.Password = "secret"

	result, err := client.Search(context.Background(), &SearchRequest{
		Index: "test_occupations",
		Query: Query{
			Should:             []Similarity{{Field: FieldSkillIDs, Values: []string{"A"}, Boost: 1.8}},
			MinimumShouldMatch: 1,
		},
		Size: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "/test_occupations/_search", gotPath)
	assert.Equal(t, "elastic", gotUser)
	assert.EqualValues(t, 100, gotBody["size"])

	require.Equal(t, 2, result.Total)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "occ1", result.Hits[0].ID)
	assert.InDelta(t, 50, result.Hits[0].Score, 1e-9)
	assert.False(t, result.Hits[0].Rescaled)
	assert.Equal(t, "Baker", result.Hits[0].Source["prefLabel"])
}

func TestSearchMarksRescaledHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":1,"hits":[{"_id":"occ1","_score":0.3}]}}`)
	}))
	defer srv.Close()

	client := New(nil, srv.URL, nil)
	result, err := client.Search(context.Background(), &SearchRequest{
		Index: "occupations",
		Query: Query{RescaleScript: "_score / (100 + _score)"},
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.True(t, result.Hits[0].Rescaled)
	assert.Equal(t, 1, result.Total)
}

func TestSearchDecodesGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, `{"hits":{"total":{"value":1},"hits":[{"_id":"s1","_score":1}]}}`)
		_ = gz.Close()
	}))
	defer srv.Close()

	result, err := New(nil, srv.URL, nil).Search(context.Background(), &SearchRequest{Index: "skills"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "s1", result.Hits[0].ID)
}

func TestSearchFailuresAreRetrievalErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception","reason":"unknown query [more_like]"},"status":400}`)
	}))
	defer srv.Close()

	client := New(nil, srv.URL, nil)

	_, err := client.Search(context.Background(), &SearchRequest{Index: "occupations"})
	require.Error(t, err)
	assert.True(t, failure.IsRetrieval(err))
	assert.Contains(t, err.Error(), "unknown query [more_like]")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Search(ctx, &SearchRequest{Index: "occupations"})
	require.Error(t, err)
	assert.True(t, failure.IsRetrieval(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPercolateCountOnly(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":42},"hits":[]}}`)
	}))
	defer srv.Close()

	result, err := New(nil, srv.URL, nil).Percolate(context.Background(), &PercolateRequest{
		Index:     "skills_percolate",
		Document:  map[string]any{ContentField: "go and kubernetes"},
		Size:      500,
		JustCount: true,
		Source:    []string{FieldPrefLabel},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result.Total)
	assert.Empty(t, result.Matches)

	assert.EqualValues(t, 0, gotBody["size"])
	assert.Equal(t, true, gotBody["track_total_hits"])
	assert.NotContains(t, gotBody, "_source")

	percolate := gotBody["query"].(map[string]any)["percolate"].(map[string]any)
	assert.Equal(t, DefaultPercolatorField, percolate["field"])
	assert.Equal(t, "go and kubernetes", percolate["document"].(map[string]any)[ContentField])
}

func TestNames(t *testing.T) {
	names := Names{Prefix: "prod_", PercolationSuffix: "_percolate"}

	assert.Equal(t, "prod_occupations", names.Occupations())
	assert.Equal(t, "prod_skills", names.Skills())
	assert.Equal(t, "prod_skills_percolate", names.Percolation())
}
