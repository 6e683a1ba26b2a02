// Package tika provides Apache Tika integration for text extraction.
//
// It extracts text content from various document formats including
// PDF, Word, and plain text files. The package handles document
// parsing and provides clean text output for further processing.
package tika

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
	"github.com/fairyhunter13/cv-screening-pipeline/pkg/textx"
)

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client with a default timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Extract converts raw document bytes to sanitized plain text. Plain-text
// uploads skip the Tika round trip entirely; everything else is sent to the
// server with a sniffed Content-Type.
func (c *Client) Extract(ctx context.Context, fileName string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("op=tika.extract: empty document: %w", domain.ErrInputMissing)
	}
	ct := sniffContentType(fileName, content)
	if strings.HasPrefix(ct, "text/plain") && utf8.Valid(content) {
		text := textx.Sanitize(string(content))
		if text == "" {
			return "", fmt.Errorf("op=tika.extract: no text content: %w", domain.ErrParseFailure)
		}
		return text, nil
	}

	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("op=tika.extract: %w", domain.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("op=tika.extract: %w: %v", domain.ErrUpstreamTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("op=tika.extract: status %d: %w", resp.StatusCode, domain.ErrUpstreamTransient)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// 4xx means Tika could not parse the document; retrying won't help.
		return "", fmt.Errorf("op=tika.extract: status %d: %w", resp.StatusCode, domain.ErrParseFailure)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w: %v", domain.ErrUpstreamTransient, err)
	}
	text := textx.Flatten(string(b))
	if text == "" {
		return "", fmt.Errorf("op=tika.extract: no text content: %w", domain.ErrParseFailure)
	}
	return text, nil
}

// sniffContentType prefers magic-byte detection and falls back to the file
// extension for formats mimetype reports generically (e.g. docx as zip).
func sniffContentType(fileName string, content []byte) string {
	mt := mimetype.Detect(content)
	ct := mt.String()
	if ct != "" && ct != "application/octet-stream" && ct != "application/zip" {
		return ct
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		if ext != "" {
			if byExt := mime.TypeByExtension(ext); byExt != "" {
				return byExt
			}
		}
	}
	return ct
}
