package canon

import (
	"bytes"
	"errors"
	"testing"
)

func mustCanonicalize(t *testing.T, input string) []byte {
	t.Helper()
	out, err := Canonicalize([]byte(input))
	if err != nil {
		t.Fatalf("Canonicalize(%q): %v", input, err)
	}
	return out
}

func TestCanonicalizeIdempotentText(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"  Mixed   CASE \t input\r\n",
		"%2e%2e%2fetc%2fpasswd",
		"path/with/%20spaces%20/inside",
		"plain unicode: café naïve",
	}
	for _, in := range inputs {
		once := mustCanonicalize(t, in)
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("second pass on %q: %v", in, err)
		}
		if !bytes.Equal(once, twice) {
			t.Errorf("canonical form of %q is not stable: %q vs %q", in, once, twice)
		}
	}
}

func TestCanonicalizeIdempotentStructured(t *testing.T) {
	inputs := []string{
		`{}`,
		`[]`,
		`{"b":1,"a":2}`,
		`[1, 2.50, "three", null, true, {"z": [], "a": {}}]`,
		` { "outer" : { "b" : "x" , "a" : "y" } } `,
	}
	for _, in := range inputs {
		once := mustCanonicalize(t, in)
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("second pass on %q: %v", in, err)
		}
		if !bytes.Equal(once, twice) {
			t.Errorf("canonical form of %q is not stable: %q vs %q", in, once, twice)
		}
	}
}

func TestKeyOrderInsensitive(t *testing.T) {
	a := mustCanonicalize(t, `{"b":1,"a":2}`)
	b := mustCanonicalize(t, `{"a":2,"b":1}`)
	if !bytes.Equal(a, b) {
		t.Fatalf("key order leaked into canonical form: %q vs %q", a, b)
	}
	if string(a) != `{"a":2,"b":1}` {
		t.Errorf("expected sorted minimal form, got %q", a)
	}
}

func TestNestedKeysSorted(t *testing.T) {
	got := mustCanonicalize(t, `{"outer":{"z":1,"a":[{"m":1,"b":2}]},"alpha":true}`)
	want := `{"alpha":true,"outer":{"a":[{"b":2,"m":1}],"z":1}}`
	if string(got) != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTraversalEscapesReduce(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"%2e%2e%2fetc%2fpasswd", "../etc/passwd"},
		{"%2E%2E%2F", "../"},
		{"%c0%af", "../"},
		{".%2e/secret", "../secret"},
		{"%2e%2e/twice%2e%2e/deep", "../twice../deep"},
		{"a%20b", "a b"},
		{"%2f%2e", "/."},
		{"%252e", "%252e"},
	}
	for _, tc := range cases {
		got := mustCanonicalize(t, tc.in)
		if string(got) != tc.want {
			t.Errorf("Canonicalize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestWhitespaceCollapse(t *testing.T) {
	got := mustCanonicalize(t, "  Hello \t  World\r\n")
	if string(got) != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
}

func TestUnicodeCompositionNormalized(t *testing.T) {
	composed := mustCanonicalize(t, "café")
	decomposed := mustCanonicalize(t, "café")
	if !bytes.Equal(composed, decomposed) {
		t.Errorf("composed and decomposed spellings should canonicalize identically: %q vs %q", composed, decomposed)
	}
}

func TestStructuredStringsNormalized(t *testing.T) {
	escaped := mustCanonicalize(t, `{"k":"Café"}`)
	literal := mustCanonicalize(t, `{"k":"Café"}`)
	if !bytes.Equal(escaped, literal) {
		t.Errorf("escape and literal spellings should canonicalize identically: %q vs %q", escaped, literal)
	}
	if string(escaped) != `{"k":"Café"}` {
		t.Errorf("expected raw UTF-8 emission, got %q", escaped)
	}
}

func TestNumberLiteralsPreserved(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"n":12345678901234567890123}`, `{"n":12345678901234567890123}`},
		{`{"n":1.50}`, `{"n":1.50}`},
		{`{"n":1E5}`, `{"n":1e5}`},
		{`[0.1, -7]`, `[0.1,-7]`},
	}
	for _, tc := range cases {
		got := mustCanonicalize(t, tc.in)
		if string(got) != tc.want {
			t.Errorf("Canonicalize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestInvalidEncoding(t *testing.T) {
	_, err := Canonicalize([]byte{0xff, 0xfe, 0xfd})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestMalformedStructure(t *testing.T) {
	inputs := []string{
		`{`,
		`{"a":}`,
		`[1,]`,
		`{} trailing`,
		`{"a":1}{"b":2}`,
	}
	for _, in := range inputs {
		_, err := Canonicalize([]byte(in))
		if !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("Canonicalize(%q): expected ErrMalformedStructure, got %v", in, err)
		}
	}
}

func TestDuplicateKeysLastWins(t *testing.T) {
	got := mustCanonicalize(t, `{"a":1,"a":2}`)
	if string(got) != `{"a":2}` {
		t.Errorf("expected last duplicate to win, got %q", got)
	}
}

func TestControlCharactersEscaped(t *testing.T) {
	got := mustCanonicalize(t, `{"k":"line1\nline2"}`)
	if string(got) != `{"k":"line1\nline2"}` {
		t.Errorf("expected control escapes to survive, got %q", got)
	}
}

func TestOutputNeverAliasesInput(t *testing.T) {
	in := []byte("already canonical")
	out := mustCanonicalize(t, string(in))
	copy(in, "XXXXXXX")
	if string(out) != "already canonical" {
		t.Errorf("canonical output changed when the input was mutated: %q", out)
	}
}

func TestIsCanonical(t *testing.T) {
	ok, err := IsCanonical([]byte("hello world"))
	if err != nil || !ok {
		t.Fatalf("expected canonical input to report true, got %v %v", ok, err)
	}
	ok, err = IsCanonical([]byte("Hello World"))
	if err != nil || ok {
		t.Fatalf("expected non-canonical input to report false, got %v %v", ok, err)
	}
	if _, err := IsCanonical([]byte{0xff}); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}
