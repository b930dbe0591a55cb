package codec

import (
	"bytes"
	"testing"
)

// spyCodec records whether Decode was invoked so tests can prove Limit
// short-circuits before touching the inner codec.
type spyCodec struct {
	decoded bool
}

func (s *spyCodec) Encode(v string) ([]byte, error) { return []byte(v), nil }
func (s *spyCodec) Decode(b []byte) (string, error) {
	s.decoded = true
	return string(b), nil
}

// TestLimitRejectsOversizedPayload verifies Decode fails fast on payloads
// longer than MaxDecode and never reaches the inner codec.
func TestLimitRejectsOversizedPayload(t *testing.T) {
	spy := &spyCodec{}
	c := Limit[string]{Inner: spy, MaxDecode: 4}

	if _, err := c.Decode([]byte("hello")); err == nil {
		t.Fatal("Decode accepted a 5-byte payload with MaxDecode=4")
	}
	if spy.decoded {
		t.Fatal("oversized payload reached the inner codec")
	}

	got, err := c.Decode([]byte("ok"))
	if err != nil {
		t.Fatalf("Decode(within limit): %v", err)
	}
	if got != "ok" {
		t.Fatalf("Decode = %q, want %q", got, "ok")
	}
}

// TestLimitDisabledWhenNonPositive verifies MaxDecode <= 0 means no limit.
func TestLimitDisabledWhenNonPositive(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 0}
	got, err := c.Decode(bytes.Repeat([]byte("x"), 1<<16))
	if err != nil {
		t.Fatalf("Decode with limit disabled: %v", err)
	}
	if len(got) != 1<<16 {
		t.Fatalf("Decode returned %d bytes, want %d", len(got), 1<<16)
	}
}

// TestCBORDeterministicIsStable encodes the same map twice under the
// deterministic mode and expects identical bytes. Map iteration order
// would otherwise make the payload flap between runs.
func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	v := map[string]int{"alpha": 1, "beta": 2, "gamma": 3, "delta": 4}

	a, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("deterministic CBOR produced different bytes for the same value")
	}

	got, err := c.Decode(a)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(v) || got["gamma"] != 3 {
		t.Fatalf("Decode = %v, want %v", got, v)
	}
}

// TestBytesIsIdentity verifies the Bytes codec passes slices through
// without copying.
func TestBytesIsIdentity(t *testing.T) {
	in := []byte{0xde, 0xad}
	out, err := Bytes{}.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if &out[0] != &in[0] {
		t.Fatal("Encode copied the slice")
	}
	back, err := Bytes{}.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if &back[0] != &in[0] {
		t.Fatal("Decode copied the slice")
	}
}
