// Package codec provides pluggable value serialization for store-backed
// buckets. A Codec turns the cached model into the payload bytes framed
// inside an entry blob; it never sees ids, timestamps or stream keys.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
