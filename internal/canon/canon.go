// Package canon produces the canonical form of untrusted payloads.
//
// Canonicalization is the single choke point everything else hashes
// and scores against: deterministic, total for valid input, and
// idempotent, so canonicalizing a canonical form returns it unchanged
// byte for byte. Text payloads go through Unicode normalization,
// escaped-sequence reduction, case folding, and whitespace collapse.
// Structured payloads (JSON objects and arrays) are re-encoded with
// lexicographically sorted keys and minimal separators.
package canon

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrInvalidEncoding reports input that is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("canon: input is not valid UTF-8")

	// ErrMalformedStructure reports a structured payload that does not
	// parse as a single JSON document.
	ErrMalformedStructure = errors.New("canon: malformed structured payload")
)

// Canonicalize maps input to its canonical form. The returned slice is
// a fresh allocation and never aliases the input.
func Canonicalize(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, ErrInvalidEncoding
	}
	if isStructured(input) {
		return canonicalJSON(input)
	}
	return canonicalText(input), nil
}

// IsCanonical reports whether input already equals its canonical form.
func IsCanonical(input []byte) (bool, error) {
	out, err := Canonicalize(input)
	if err != nil {
		return false, err
	}
	return string(out) == string(input), nil
}

// isStructured looks at the first non-whitespace byte: payloads opening
// an object or array take the structural path.
func isStructured(p []byte) bool {
	for _, c := range p {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
