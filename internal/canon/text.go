package canon

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// mapping rewrites one escaped byte sequence to its canonical spelling.
type mapping struct {
	from string
	to   string
}

// mappings lists the escaped traversal spellings collapsed during text
// canonicalization. Longer sequences come first so compound encodings
// win over their fragments at the same position. Input is case-folded
// before this table applies, so lowercase entries cover all spellings.
var mappings = []mapping{
	{"%2e%2e%2f", "../"},
	{"%2e%2e/", "../"},
	{".%2e/", "../"},
	{"%c0%af", "../"},
	{"%c0%ae", "."},
	{"%2f", "/"},
	{"%2e", "."},
	{"%20", " "},
}

// canonicalText runs the text pipeline: Unicode NFC, case fold,
// escaped-sequence reduction to a fixpoint, whitespace collapse, and a
// final NFC pass so the output is normalization-stable.
func canonicalText(input []byte) []byte {
	s := norm.NFC.String(string(input))
	s = strings.ToLower(s)
	s = reduceEscapes(s)
	s = collapseWhitespace(s)
	s = norm.NFC.String(s)
	return []byte(s)
}

// reduceEscapes applies the mapping table until the string stops
// changing. Every mapping shrinks its span, so the loop terminates in
// at most len(s) passes; the fixpoint guarantees a second
// canonicalization finds nothing left to rewrite.
func reduceEscapes(s string) string {
	for i := 0; i <= len(s); i++ {
		next := reduceOnce(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func reduceOnce(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
scan:
	for i < len(s) {
		for _, m := range mappings {
			if len(s)-i >= len(m.from) && s[i:i+len(m.from)] == m.from {
				b.WriteString(m.to)
				i += len(m.from)
				continue scan
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// collapseWhitespace folds ASCII whitespace runs into a single space
// and trims both edges.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteByte(s[i])
	}
	return b.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
