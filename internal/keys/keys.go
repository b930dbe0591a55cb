// Package keys derives the composite keys under which buckets and
// subscription channels are indexed.
//
// A composite key is the caller's logical key joined with the owning
// bucket's namespace suffix. The collection bucket carries no namespace, so
// its composite keys equal the logical keys; the single-item bucket appends
// its suffix so that "7" (collection view) and "7#single" (single view) stay
// independent subscription targets.
package keys

// Delim separates a logical key from a namespace suffix. Logical keys that
// themselves end in Delim plus a reserved namespace would collide; callers
// own their key vocabulary.
const Delim = "#"

// Composite returns the bucket/registry index key for a logical stream key
// within the given namespace. An empty namespace returns the key unchanged.
func Composite(key, namespace string) string {
	if namespace == "" {
		return key
	}
	return key + Delim + namespace
}
