// Package extract turns raw document bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/clariq-health/docqa/internal/domain"
)

// Extensions lists the document types eligible for ingestion.
var Extensions = []string{".pdf", ".txt", ".md"}

// Supported reports whether a logical name has an eligible extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(raw []byte, name string) (string, error)
}

// Service extracts text based on the document's file extension.
type Service struct{}

// New creates an extraction service.
func New() *Service { return &Service{} }

// Extract returns the plain text of a document. Unreadable, unsupported, or
// empty-after-extraction documents fail with domain.ErrExtraction.
func (s *Service) Extract(raw []byte, name string) (string, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = extractPDF(raw)
	case ".txt", ".md":
		text, err = extractPlain(raw)
	default:
		return "", fmt.Errorf("unsupported document type %q: %w", filepath.Ext(name), domain.ErrExtraction)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document %s is empty after extraction: %w", name, domain.ErrExtraction)
	}
	return text, nil
}

func extractPlain(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("document is not valid UTF-8: %w", domain.ErrExtraction)
	}
	return string(raw), nil
}

func extractPDF(raw []byte) (text string, err error) {
	// The pdf parser panics on malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v: %w", r, domain.ErrExtraction)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w: %w", err, domain.ErrExtraction)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages, keep the rest
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Fprintf(&sb, "[Page %d]\n%s\n\n", i, content)
	}

	return sb.String(), nil
}
