package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseReadsFieldsInOrder(t *testing.T) {
	var b []byte
	b = AppendUint(b, 1, 42)
	b = AppendBytes(b, 2, []byte("a"))
	b = AppendBytes(b, 2, []byte("b"))
	b = AppendBool(b, 3, true)
	b = AppendString(b, 4, "s")

	fs, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, ok := fs.Uint(1); !ok || v != 42 {
		t.Fatalf("Uint(1) = %d, %v", v, ok)
	}
	all := fs.All(2)
	if len(all) != 2 || string(all[0]) != "a" || string(all[1]) != "b" {
		t.Fatalf("All(2) = %q", all)
	}
	if !fs.Bool(3) {
		t.Fatalf("Bool(3) = false")
	}
	if fs.String(4) != "s" {
		t.Fatalf("String(4) = %q", fs.String(4))
	}
	if fs.Has(9) {
		t.Fatalf("Has(9) = true")
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	enc := func() []byte {
		var b []byte
		b = AppendUint(b, 1, 7)
		return AppendBytes(b, 2, []byte("payload"))
	}
	if !bytes.Equal(enc(), enc()) {
		t.Fatalf("expected identical encodings")
	}
}

func TestParseRejectsTruncatedInput(t *testing.T) {
	b := AppendBytes(nil, 1, []byte("0123456789"))
	_, err := Parse(b[:len(b)-3])
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got err=%v want ErrMalformed", err)
	}
}

func TestParseCopiesBytes(t *testing.T) {
	b := AppendBytes(nil, 1, []byte("abc"))
	fs, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b[len(b)-1] = 'z'
	if got, _ := fs.Bytes(1); string(got) != "abc" {
		t.Fatalf("decoded bytes alias input: %q", got)
	}
}
