package series

import (
	"strings"
	"testing"

	"PQAnalyzer/internal/domain/models"
)

func TestDecodeSkipsMalformedRows(t *testing.T) {
	in := "0.2,231.5\n0.1,230\n\n0.3\n0.4,abc\n0.5,229,1\n0.6, 228\n"
	s, st, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("expected 3 samples, got %d: %v", len(s), s)
	}
	if st.Skipped != 3 {
		t.Fatalf("expected 3 skipped rows, got %+v", st)
	}
	if s[0].T != 0.1 || s[1].T != 0.2 || s[2].V != 228 {
		t.Fatalf("unexpected order %v", s)
	}
}

func TestDecodeEmpty(t *testing.T) {
	s, st, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s) != 0 || st.Rows != 0 {
		t.Fatalf("expected nothing, got %v %+v", s, st)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := models.Series{{T: 0, V: 120.5}, {T: 0.1, V: -3.25}}
	b, err := EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != "0,120.5\n0.1,-3.25\n" {
		t.Fatalf("unexpected blob %q", b)
	}
	out, _, err := DecodeBytes(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[1] != in[1] {
		t.Fatalf("decoded %v", out)
	}
}
