// Package wire frames cache entries and key indexes for byte-store backed
// buckets. Framing is strict: unknown magic, version or kind bytes, short
// buffers, oversized lengths and trailing bytes are all rejected, so foreign
// or truncated blobs in a shared store surface as ErrCorrupt instead of
// garbage entries.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version   byte = 1
	kindEntry byte = 1
	kindIndex byte = 2

	maxName = 0xFFFF // ids and stream keys are u16 length-prefixed
)

var (
	ErrCorrupt = errors.New("livecache: corrupt frame")
	magic4     = [...]byte{'L', 'I', 'V', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry is the persisted form of one cached entry: identity, timestamps
// (unix nanoseconds), the stream keys referencing it and the encoded model
// payload.
type Entry struct {
	ID        string
	CreatedAt int64
	UpdatedAt int64
	Keys      []string
	Payload   []byte
}

// Entry frame:
//
//	magic(4) | ver(1) | kind(1=entry) | idLen(u16 be) | id(idLen)
//	| createdAt(i64 be) | updatedAt(i64 be)
//	| nkeys(u32 be) | (keyLen(u16 be) | key(keyLen))*
//	| vlen(u32 be) | payload(vlen)
func EncodeEntry(e Entry) ([]byte, error) {
	if l := len(e.ID); l == 0 || l > maxName {
		return nil, fmt.Errorf("wire: invalid entry id length %d", len(e.ID))
	}
	total := 4 + 1 + 1 + 2 + len(e.ID) + 8 + 8 + 4
	for _, k := range e.Keys {
		if l := len(k); l == 0 || l > maxName {
			return nil, fmt.Errorf("wire: invalid stream key length %d", l)
		}
		total += 2 + len(k)
	}
	total += 4 + len(e.Payload)

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.ID)))
	buf.Write(u2[:])
	buf.WriteString(e.ID)

	binary.BigEndian.PutUint64(u8[:], uint64(e.CreatedAt))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.UpdatedAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Keys)))
	buf.Write(u4[:])
	for _, k := range e.Keys {
		binary.BigEndian.PutUint16(u2[:], uint16(len(k)))
		buf.Write(u2[:])
		buf.WriteString(k)
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)

	return buf.Bytes(), nil
}

func DecodeEntry(b []byte) (Entry, error) {
	const hdr = 4 + 1 + 1 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}

	off := 6

	// id
	idLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if idLen <= 0 || idLen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	id := string(b[off : off+idLen])
	off += idLen

	// timestamps
	if off+16 > len(b) {
		return Entry{}, ErrCorrupt
	}
	created := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	updated := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	// nkeys
	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	nkeys := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if nkeys < 0 {
		return Entry{}, ErrCorrupt
	}

	// each key needs at least its u16 length prefix
	keys := make([]string, 0, boundedCap(nkeys, len(b)-off, 2))
	for i := 0; i < nkeys; i++ {
		if off+2 > len(b) {
			return Entry{}, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		keys = append(keys, string(b[off:off+klen]))
		off += klen
	}

	// payload
	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	payload := b[off : off+vlen]
	off += vlen

	if off != len(b) { // strict framing: no trailing bytes
		return Entry{}, ErrCorrupt
	}

	return Entry{
		ID:        id,
		CreatedAt: created,
		UpdatedAt: updated,
		Keys:      keys,
		Payload:   payload,
	}, nil
}

// Index frame:
//
//	magic(4) | ver(1) | kind(2=index) | n(u32 be) | (idLen(u16 be) | id(idLen))*
func EncodeIndex(ids []string) ([]byte, error) {
	total := 4 + 1 + 1 + 4
	for _, id := range ids {
		if l := len(id); l == 0 || l > maxName {
			return nil, fmt.Errorf("wire: invalid index id length %d", l)
		}
		total += 2 + len(id)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindIndex)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(ids)))
	buf.Write(u4[:])

	for _, id := range ids {
		binary.BigEndian.PutUint16(u2[:], uint16(len(id)))
		buf.Write(u2[:])
		buf.WriteString(id)
	}

	return buf.Bytes(), nil
}

func DecodeIndex(b []byte) ([]string, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindIndex {
		return nil, ErrCorrupt
	}

	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return nil, ErrCorrupt
	}

	ids := make([]string, 0, boundedCap(n, len(b)-off, 2))
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		l := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if l <= 0 || l > len(b)-off {
			return nil, ErrCorrupt
		}
		ids = append(ids, string(b[off:off+l]))
		off += l
	}

	if off != len(b) {
		return nil, ErrCorrupt
	}

	return ids, nil
}

// boundedCap caps a declared element count by what the remaining bytes could
// possibly hold, so a forged count cannot force a huge preallocation.
func boundedCap(declared, remaining, minItem int) int {
	most := remaining / minItem
	if declared < most {
		return declared
	}
	return most
}
