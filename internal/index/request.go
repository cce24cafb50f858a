package index

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/failure"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxErrorBody    = 4096
)

// errorResponse is the error envelope returned by the index on non-2xx statuses.
type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// postJSON sends body to {URL}/{index}/{endpoint} and decodes the response into target.
// Every failure is reported as a RetrievalError tagged with op.
func (c *Client) postJSON(ctx context.Context, op, index, endpoint string, body any, target any) error {
	if err := ctx.Err(); err != nil {
		return failure.Retrieval(op, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return failure.Retrieval(op, fmt.Errorf("encoding request: %w", err))
	}

	endpointURL := fmt.Sprintf("%s/%s/%s", c.URL, url.PathEscape(index), endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(payload))
	if err != nil {
		return failure.Retrieval(op, err)
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	err = c.do(req, target)
	took := time.Since(start)
	c.metrics.ObserveIndexRequest(op, took, err)

	if err != nil {
		c.logger.Debug("index request failed",
			zap.String("operation", op),
			zap.String("index", index),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return failure.Retrieval(op, err)
	}

	c.logger.Debug("index request completed",
		zap.String("operation", op),
		zap.String("index", index),
		zap.Duration("took", took),
	)

	return nil
}

func (c *Client) do(req *http.Request, target any) error {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp.Status, reader)
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	return req
}

func statusError(status string, body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	var envelope errorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Reason != "" {
		return fmt.Errorf("bad status: %s: %s: %s", status, envelope.Error.Type, envelope.Error.Reason)
	}

	return fmt.Errorf("bad status: %s", status)
}
