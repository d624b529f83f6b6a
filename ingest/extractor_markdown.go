package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// chapterHeadingLevel is the deepest ATX heading level treated as a chapter
// boundary. H1/H2 delimit chapters; deeper headings stay inside a section.
const chapterHeadingLevel = 2

// MarkdownExtractor keeps the markdown source as text and reads its heading
// structure through the goldmark AST. Each H1/H2 heading starts a new unit
// titled after the heading, so chapter-delimited books split on their real
// chapter titles rather than on guessed patterns.
type MarkdownExtractor struct{}

var _ Extractor = MarkdownExtractor{}

func (MarkdownExtractor) Extract(content []byte) (ExtractResult, error) {
	src := content
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	type headingMark struct {
		start int
		title string
	}
	var marks []headingMark

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > chapterHeadingLevel || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := h.Lines().At(0)
		marks = append(marks, headingMark{
			start: lineStart(src, seg.Start),
			title: headingTitle(h, src),
		})
		return ast.WalkSkipChildren, nil
	})

	res := ExtractResult{Text: string(src)}
	if len(marks) == 0 {
		return res, nil
	}
	if marks[0].title != "" {
		res.Title = marks[0].title
	}

	for i, m := range marks {
		end := len(src)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		res.Units = append(res.Units, UnitMeta{
			Ordinal:   i,
			Title:     m.title,
			StartByte: m.start,
			EndByte:   end,
		})
	}
	// Front matter before the first heading belongs to the first unit.
	if res.Units[0].StartByte > 0 {
		res.Units[0].StartByte = 0
	}
	return res, nil
}

// lineStart walks back from pos to the beginning of its line, so a unit
// starts at the heading marker rather than the heading text.
func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// headingTitle joins a heading's line segments into its plain title.
func headingTitle(h *ast.Heading, src []byte) string {
	var b strings.Builder
	for i := 0; i < h.Lines().Len(); i++ {
		seg := h.Lines().At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}
