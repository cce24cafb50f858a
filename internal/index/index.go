// Package index talks to the Elasticsearch-compatible occupation and skill
// indexes: weighted relevance search and percolation.
package index

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const (
	defaultURL     = "http://localhost:9200"
	defaultTimeout = 10 * time.Second
	userAgent      = "spigell/skill-matcher"
)

// Gateway is the contract the matching engine consumes.
type Gateway interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Percolate(ctx context.Context, req *PercolateRequest) (*PercolateResult, error)
}

type Client struct {
	logger     *zap.Logger
	metrics    *metrics.Metrics
	HTTPClient *http.Client
	UserAgent  string
	URL        string
	Username   string
	Password   string
}

var _ Gateway = (*Client)(nil)

func New(log *zap.Logger, url string, m *metrics.Metrics) *Client {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		url = defaultURL
	}

	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger.OrNop(log),
		metrics:   m,
		UserAgent: userAgent,
	}
}

// Names resolves index names from a shared prefix.
type Names struct {
	Prefix            string
	PercolationSuffix string
}

func (n Names) Occupations() string { return n.Prefix + "occupations" }

func (n Names) Skills() string { return n.Prefix + "skills" }

func (n Names) Percolation() string { return n.Skills() + n.PercolationSuffix }
