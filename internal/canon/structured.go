package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// canonicalJSON re-encodes a JSON document in canonical form: object
// keys sorted lexicographically by their normalized bytes, minimal
// separators, NFC-normalized strings, and number literals carried
// verbatim (lowercased exponent) so untrusted numerics never lose
// precision to a float round-trip.
func canonicalJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(strings.NewReader(norm.NFC.String(string(input))))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing content after document", ErrMalformedStructure)
	}

	var b bytes.Buffer
	b.Grow(len(input))
	if err := emitValue(&b, v); err != nil {
		return nil, err
	}
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	return out, nil
}

func emitValue(b *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(strings.ToLower(t.String()))
	case string:
		writeString(b, norm.NFC.String(t))
	case []any:
		b.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := emitValue(b, el); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		return emitObject(b, t)
	default:
		return fmt.Errorf("%w: unexpected value type %T", ErrMalformedStructure, v)
	}
	return nil
}

// emitObject normalizes keys before sorting. When normalization makes
// two raw keys collide, the one latest in raw sorted order wins, so
// the outcome never depends on map iteration order.
func emitObject(b *bytes.Buffer, obj map[string]any) error {
	raw := make([]string, 0, len(obj))
	for k := range obj {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	merged := make(map[string]any, len(obj))
	keys := make([]string, 0, len(obj))
	for _, k := range raw {
		nk := norm.NFC.String(k)
		if _, seen := merged[nk]; !seen {
			keys = append(keys, nk)
		}
		merged[nk] = obj[k]
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, k)
		b.WriteByte(':')
		if err := emitValue(b, merged[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

const hexdigits = "0123456789abcdef"

// writeString emits s with the minimal JSON escaping: quote, backslash,
// and control characters only. Everything else passes through as raw
// UTF-8.
func writeString(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\b':
			b.WriteString(`\b`)
		case c == '\f':
			b.WriteString(`\f`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			b.WriteString(`\u00`)
			b.WriteByte(hexdigits[c>>4])
			b.WriteByte(hexdigits[c&0xf])
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
}
