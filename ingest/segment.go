package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SegmentSentences splits a section's text into an ordered list of
// sentences. Input is NFC-normalized first so that extractor output with
// decomposed accents segments (and later embeds) consistently. Common
// abbreviations, decimal numbers, and CJK sentence-ending punctuation are
// handled; text with no detectable boundary comes back as one sentence.
func SegmentSentences(text string) []string {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return nil
	}

	breaks := sentenceBreaks(text)
	if len(breaks) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(breaks)+1)
	start := 0
	for _, b := range breaks {
		if s := strings.TrimSpace(text[start:b]); s != "" {
			sentences = append(sentences, s)
		}
		start = b
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// abbreviations that do not end a sentence despite a trailing dot.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true, "st": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true, "ch": true, "pp": true,
}

// isAbbreviation reports whether the word ending at the dot at dotPos is a
// known abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	return abbreviations[strings.ToLower(text[start:dotPos])]
}

// isDecimalDot reports whether the dot at dotPos sits inside a number
// (3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	return text[dotPos-1] >= '0' && text[dotPos-1] <= '9' &&
		text[dotPos+1] >= '0' && text[dotPos+1] <= '9'
}

// sentenceBreaks returns byte positions where one sentence ends and the
// next begins. ASCII terminators (.!?) require following whitespace and an
// upper-case continuation (or end of text); CJK terminators (。！？) always
// break.
func sentenceBreaks(text string) []int {
	var breaks []int
	runes := []rune(text)
	n := len(runes)

	byteAt := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteAt[i] = off
		off += utf8.RuneLen(r)
	}
	byteAt[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		if r == '。' || r == '！' || r == '？' {
			breaks = append(breaks, byteAt[i+1])
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		pos := byteAt[i]
		if r == '.' && (isDecimalDot(text, pos) || isAbbreviation(text, pos)) {
			continue
		}

		if i+1 < n && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			switch {
			case runes[i+1] == '\n':
				breaks = append(breaks, byteAt[i+1])
			case i+2 < n && unicode.IsUpper(runes[i+2]):
				breaks = append(breaks, byteAt[i+2])
			case i+2 >= n:
				breaks = append(breaks, byteAt[n])
			}
		}
	}
	return breaks
}
