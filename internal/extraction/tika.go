package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tikaPath    = "/tika"
	tikaTimeout = 60 * time.Second
	maxTikaErr  = 1024
)

// TikaParser delegates binary office and PDF formats to an Apache Tika server.
type TikaParser struct {
	serviceURL string
	client     *http.Client
}

func NewTikaParser(serviceURL string) *TikaParser {
	return &TikaParser{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: tikaTimeout,
		},
	}
}

func (p *TikaParser) Parse(ctx context.Context, mimeType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.serviceURL+tikaPath, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling tika: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxTikaErr))
		return "", fmt.Errorf("tika returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return string(body), nil
}
