package ingest

import "strings"

// Section is a structurally-delimited unit of a source document: a chapter,
// a page, or the whole document when no structure was detected. Sections
// are created once per document, before any semantic chunking, and live
// only for the ingestion run that consumes them. Semantic boundaries never
// cross a section boundary.
type Section struct {
	// Index is the section's ordinal position in the document, from 0.
	Index int
	// Title is the chapter title, when the source format exposed one.
	Title string
	// Text is the section's raw extracted text.
	Text string
}

// DetectSections partitions an extracted document into sections using the
// structural units its format reported: heading-delimited units for
// chapter-structured sources, page units for paginated ones. A document
// with no units becomes a single section, and only semantic boundaries
// subdivide it from that point on.
func DetectSections(res ExtractResult) []Section {
	if len(res.Units) == 0 {
		return []Section{{Index: 0, Title: res.Title, Text: res.Text}}
	}

	sections := make([]Section, 0, len(res.Units))
	for _, u := range res.Units {
		start, end := u.StartByte, u.EndByte
		if start < 0 || end > len(res.Text) || start >= end {
			continue
		}
		sections = append(sections, Section{
			Index: len(sections),
			Title: u.Title,
			Text:  strings.TrimSpace(res.Text[start:end]),
		})
	}
	if len(sections) == 0 {
		return []Section{{Index: 0, Title: res.Title, Text: res.Text}}
	}
	return sections
}
