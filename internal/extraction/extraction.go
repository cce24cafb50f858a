// Package extraction turns an uploaded CV into plain text.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/utils"
)

const (
	DefaultMaxFileSize = 10 << 20

	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEHTML     = "text/html"
	MIMEXHTML    = "application/xhtml+xml"
	MIMEPDF      = "application/pdf"
	MIMEDOC      = "application/msword"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMERTF      = "application/rtf"
	MIMETextRTF  = "text/rtf"
	MIMEODT      = "application/vnd.oasis.opendocument.text"

	mimeOctetStream = "application/octet-stream"
	previewLength   = 120
)

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrTooLarge    = errors.New("document exceeds maximum size")
	ErrNoText      = errors.New("document contains no text")
)

// Extractor converts a document into plain text.
type Extractor interface {
	Extract(ctx context.Context, mimeType string, r io.Reader) (string, error)
}

// Parser handles one family of formats.
type Parser interface {
	Parse(ctx context.Context, mimeType string, data []byte) (string, error)
}

type Options struct {
	// TikaURL enables PDF, DOC, RTF and ODT support through a Tika server.
	TikaURL     string
	MaxFileSize int64
}

// MultiExtractor dispatches to a Parser by MIME type.
type MultiExtractor struct {
	logger      *zap.Logger
	metrics     *metrics.Metrics
	parsers     map[string]Parser
	maxFileSize int64
}

var _ Extractor = (*MultiExtractor)(nil)

func New(log *zap.Logger, m *metrics.Metrics, opts Options) *MultiExtractor {
	e := &MultiExtractor{
		logger:      logger.OrNop(log),
		metrics:     m,
		parsers:     make(map[string]Parser),
		maxFileSize: opts.MaxFileSize,
	}
	if e.maxFileSize <= 0 {
		e.maxFileSize = DefaultMaxFileSize
	}

	plain := &PlainTextParser{}
	e.Register(plain, MIMEPlain, MIMEMarkdown, "text/x-markdown")
	e.Register(&HTMLParser{}, MIMEHTML, MIMEXHTML)
	e.Register(&DOCXParser{}, MIMEDOCX)

	if opts.TikaURL != "" {
		e.Register(NewTikaParser(opts.TikaURL), MIMEPDF, MIMEDOC, MIMERTF, MIMETextRTF, MIMEODT)
	}

	return e
}

// Register binds p to the given MIME types, replacing earlier bindings.
func (e *MultiExtractor) Register(p Parser, mimeTypes ...string) {
	for _, t := range mimeTypes {
		e.parsers[t] = p
	}
}

// Supports reports whether mimeType has a parser.
func (e *MultiExtractor) Supports(mimeType string) bool {
	_, ok := e.parsers[baseType(mimeType)]
	return ok
}

func (e *MultiExtractor) Extract(ctx context.Context, mimeType string, r io.Reader) (text string, err error) {
	resolved := baseType(mimeType)
	defer func() {
		e.metrics.RecordExtraction(resolved, err)
	}()

	if err := ctx.Err(); err != nil {
		return "", failure.Extraction(resolved, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxFileSize+1))
	if err != nil {
		return "", failure.Extraction(resolved, fmt.Errorf("reading document: %w", err))
	}
	if int64(len(data)) > e.maxFileSize {
		return "", failure.Extraction(resolved, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, e.maxFileSize))
	}

	if resolved == "" || resolved == mimeOctetStream {
		resolved = baseType(mimetype.Detect(data).String())
		e.logger.Debug("sniffed document type",
			zap.String("declared", mimeType),
			zap.String("detected", resolved),
		)
	}

	parser, ok := e.parsers[resolved]
	if !ok {
		return "", failure.Extraction(resolved, ErrUnsupported)
	}

	if err := ctx.Err(); err != nil {
		return "", failure.Extraction(resolved, err)
	}

	raw, err := parser.Parse(ctx, resolved, data)
	if err != nil {
		return "", failure.Extraction(resolved, err)
	}

	text = CleanText(raw)
	if text == "" {
		return "", failure.Extraction(resolved, ErrNoText)
	}

	e.logger.Debug("document extracted",
		zap.String("mime_type", resolved),
		zap.Int("bytes", len(data)),
		zap.Int("chars", len(text)),
		zap.String("preview", utils.TruncateForLog(text, previewLength)),
	)

	return text, nil
}

// baseType strips parameters and lowercases a media type. Unparsable input yields "".
func baseType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	return t
}

// CleanText normalises line endings, collapses runs of spaces inside lines and
// keeps at most one blank line between paragraphs.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b bytes.Buffer
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank > 0 {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.WriteString(line)
	}

	return b.String()
}
