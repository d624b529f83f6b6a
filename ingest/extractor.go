package ingest

import (
	"bytes"
	"strings"

	"github.com/go-shiori/go-readability"
)

// Extractor converts raw file content to text plus the structural signals
// native to its format. The Units carry whatever structure the format
// exposes (chapter headings, physical pages) and feed ChapterDetector;
// a format with no structure returns no units and the document stays flat.
type Extractor interface {
	Extract(content []byte) (ExtractResult, error)
}

// ExtractResult holds extracted text and per-unit structural metadata.
type ExtractResult struct {
	// Text is the full extracted document text.
	Text string
	// Title is the document-level title, when the format exposes one.
	Title string
	// Units lists the format's content units in document order. StartByte
	// and EndByte mark each unit's range within Text.
	Units []UnitMeta
}

// UnitMeta describes one structural unit of extracted content.
type UnitMeta struct {
	Ordinal   int
	Title     string
	Page      int
	StartByte int
	EndByte   int
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps file extensions to content types.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm", "xhtml":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// --- Built-in extractors ---

// PlainTextExtractor returns content as-is with no structural units; the
// whole document becomes a single section downstream.
type PlainTextExtractor struct{}

var _ Extractor = PlainTextExtractor{}

func (PlainTextExtractor) Extract(content []byte) (ExtractResult, error) {
	return ExtractResult{Text: string(content)}, nil
}

// HTMLExtractor extracts readable article text from HTML using
// go-readability, dropping navigation and boilerplate. Stripped HTML keeps
// no reliable chapter signal, so it emits no units; only the document
// title survives.
type HTMLExtractor struct{}

var _ Extractor = HTMLExtractor{}

func (HTMLExtractor) Extract(content []byte) (ExtractResult, error) {
	article, err := readability.FromReader(bytes.NewReader(content), nil)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		Text:  strings.TrimSpace(article.TextContent),
		Title: article.Title,
	}, nil
}
