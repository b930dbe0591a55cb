package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func mustDecodeEntry(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	return e
}

func mustDecodeIndex(t *testing.T, b []byte) []string {
	t.Helper()
	ids, err := DecodeIndex(b)
	if err != nil {
		t.Fatalf("DecodeIndex error: %v", err)
	}
	return ids
}

func TestEntryRoundTrip(t *testing.T) {
	cases := []Entry{
		{ID: "a", CreatedAt: 0, UpdatedAt: 0, Keys: nil, Payload: nil},
		{ID: "todo#7", CreatedAt: 1, UpdatedAt: 2, Keys: []string{"7#single"}, Payload: []byte("hello")},
		{
			ID:        "7",
			CreatedAt: -42, // pre-epoch timestamps survive the u64 trip
			UpdatedAt: 1700000000000000000,
			Keys:      []string{"all", "open", "7#single"},
			Payload:   []byte{0, 1, 2, 3, 4},
		},
	}
	for _, want := range cases {
		enc, err := EncodeEntry(want)
		if err != nil {
			t.Fatalf("EncodeEntry error: %v", err)
		}
		got := mustDecodeEntry(t, enc)
		if got.ID != want.ID || got.CreatedAt != want.CreatedAt || got.UpdatedAt != want.UpdatedAt {
			t.Fatalf("header mismatch: got=%+v want=%+v", got, want)
		}
		if len(got.Keys) != len(want.Keys) {
			t.Fatalf("keys len mismatch: got %d want %d", len(got.Keys), len(want.Keys))
		}
		for i := range want.Keys {
			if got.Keys[i] != want.Keys[i] {
				t.Fatalf("key %d mismatch: got %q want %q", i, got.Keys[i], want.Keys[i])
			}
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, want.Payload)
		}
	}
}

func TestEntryRejectsTrailingBytes(t *testing.T) {
	enc, err := EncodeEntry(Entry{ID: "x", Payload: []byte("v")})
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	enc = append(enc, 0xDE, 0xAD) // add junk
	if _, err := DecodeEntry(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestEntryCorruptHeadersAndLengths(t *testing.T) {
	enc, err := EncodeEntry(Entry{
		ID:        "e1",
		CreatedAt: 10,
		UpdatedAt: 20,
		Keys:      []string{"k1"},
		Payload:   []byte("xyz"),
	})
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}

	// bad magic
	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := DecodeEntry(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeEntry(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// wrong kind
	badKind := append([]byte(nil), enc...)
	badKind[5] = kindIndex
	if _, err := DecodeEntry(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// idLen beyond remaining buffer
	badID := append([]byte(nil), enc...)
	binary.BigEndian.PutUint16(badID[6:8], uint16(len(badID)))
	if _, err := DecodeEntry(badID); err == nil {
		t.Fatalf("expected error on idLen beyond buffer")
	}

	// keyLen beyond remaining buffer
	// header: 4 magic +1 ver +1 kind +2 idLen +2 id +8 created +8 updated +4 nkeys = 30
	badKlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint16(badKlen[30:32], uint16(200))
	if _, err := DecodeEntry(badKlen); err == nil {
		t.Fatalf("expected error on keyLen beyond buffer")
	}

	// vlen beyond remaining
	// 30 header + 2 keyLen + 2 key = 34 -> start of vlen
	badVlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(badVlen[34:38], uint32(len("xyz")+1))
	if _, err := DecodeEntry(badVlen); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	// truncated buffer
	trunc := enc[:len(enc)-1]
	if _, err := DecodeEntry(trunc); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
}

func TestEntryBogusKeyCount(t *testing.T) {
	// Declare nkeys=0xFFFFFFFF with no key bytes -> must error, not panic
	// or preallocate.
	var buf bytes.Buffer
	buf.Write([]byte{'L', 'I', 'V', 'E'})
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)
	var u2 [2]byte
	var u4 [4]byte
	var u8 [8]byte
	binary.BigEndian.PutUint16(u2[:], 1)
	buf.Write(u2[:])
	buf.WriteByte('a')
	buf.Write(u8[:]) // createdAt
	buf.Write(u8[:]) // updatedAt
	binary.BigEndian.PutUint32(u4[:], ^uint32(0))
	buf.Write(u4[:])
	if _, err := DecodeEntry(buf.Bytes()); err == nil {
		t.Fatalf("expected error on bogus key count with insufficient bytes")
	}
}

func TestEncodeEntryValidatesNames(t *testing.T) {
	// empty id -> error
	if _, err := EncodeEntry(Entry{ID: ""}); err == nil {
		t.Fatalf("expected error on empty id")
	}
	// too long id (65536) -> error
	if _, err := EncodeEntry(Entry{ID: strings.Repeat("a", 0x10000)}); err == nil {
		t.Fatalf("expected error on id length > 0xFFFF")
	}
	// empty stream key -> error
	if _, err := EncodeEntry(Entry{ID: "x", Keys: []string{""}}); err == nil {
		t.Fatalf("expected error on empty stream key")
	}
	// boundary (65535) -> ok
	if _, err := EncodeEntry(Entry{ID: "x", Keys: []string{strings.Repeat("b", 0xFFFF)}}); err != nil {
		t.Fatalf("boundary key length should succeed: %v", err)
	}
}

func TestEntryZeroCopyPayload(t *testing.T) {
	enc, err := EncodeEntry(Entry{ID: "z", Payload: []byte("Z")})
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	e := mustDecodeEntry(t, enc)
	if len(e.Payload) != 1 {
		t.Fatalf("unexpected payload len")
	}
	// mutate payload slice. should mutate underlying enc bytes (zero-copy)
	e.Payload[0] = 'Q'
	e2 := mustDecodeEntry(t, enc)
	if e2.Payload[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}

func TestIndexRoundTrip(t *testing.T) {
	cases := [][]string{
		nil, // n=0
		{"7"},
		{"3", "1", "2"}, // order preserved
		{"dup", "dup"},  // duplicates allowed. decoder preserves both
	}
	for _, want := range cases {
		enc, err := EncodeIndex(want)
		if err != nil {
			t.Fatalf("EncodeIndex error: %v", err)
		}
		got := mustDecodeIndex(t, enc)
		if len(got) != len(want) {
			t.Fatalf("len mismatch: got %d want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("id %d mismatch: got %q want %q", i, got[i], want[i])
			}
		}
	}
}

func TestIndexRejectsTrailingBytes(t *testing.T) {
	enc, err := EncodeIndex([]string{"k"})
	if err != nil {
		t.Fatalf("EncodeIndex: %v", err)
	}
	enc = append(enc, 0xBE, 0xEF)
	if _, err := DecodeIndex(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestIndexBogusCountAndTruncation(t *testing.T) {
	// Wrong n (very large) with no items -> must error, not panic.
	var buf bytes.Buffer
	buf.Write([]byte{'L', 'I', 'V', 'E'})
	buf.WriteByte(version)
	buf.WriteByte(kindIndex)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], ^uint32(0)) // n = 0xFFFFFFFF
	buf.Write(u4[:])
	if _, err := DecodeIndex(buf.Bytes()); err == nil {
		t.Fatalf("expected error on bogus n with insufficient bytes")
	}

	// Declare n=1 but provide no id body -> error
	buf.Reset()
	buf.Write([]byte{'L', 'I', 'V', 'E'})
	buf.WriteByte(version)
	buf.WriteByte(kindIndex)
	binary.BigEndian.PutUint32(u4[:], 1)
	buf.Write(u4[:])
	if _, err := DecodeIndex(buf.Bytes()); err == nil {
		t.Fatalf("expected error on truncated id list")
	}
}

func TestEncodeIndexValidatesIDs(t *testing.T) {
	// empty id -> error
	if _, err := EncodeIndex([]string{""}); err == nil {
		t.Fatalf("expected error on empty id")
	}
	// too long id (65536) -> error
	if _, err := EncodeIndex([]string{strings.Repeat("a", 0x10000)}); err == nil {
		t.Fatalf("expected error on id length > 0xFFFF")
	}
	// boundary (65535) -> ok
	if _, err := EncodeIndex([]string{strings.Repeat("b", 0xFFFF)}); err != nil {
		t.Fatalf("boundary id length should succeed: %v", err)
	}
}

func TestKindsDoNotCrossDecode(t *testing.T) {
	entry, err := EncodeEntry(Entry{ID: "x", Payload: []byte("p")})
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	if _, err := DecodeIndex(entry); err == nil {
		t.Fatalf("expected DecodeIndex to reject entry frame")
	}

	index, err := EncodeIndex([]string{"x"})
	if err != nil {
		t.Fatalf("EncodeIndex: %v", err)
	}
	if _, err := DecodeEntry(index); err == nil {
		t.Fatalf("expected DecodeEntry to reject index frame")
	}
}
