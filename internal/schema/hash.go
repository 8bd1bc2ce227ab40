package schema

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// hashSeparator joins the canonicalized name=value pairs. Changing it (or the
// sort order, or the digest) breaks compatibility with existing partitions.
const hashSeparator = "|"

// InstanceHash computes the identity of a module instance from its indexed
// column values: pairs sorted by column name, joined with a fixed separator,
// blake3-digested and hex encoded. Two instances with equal indexed values
// hash identically and are the same instance.
func InstanceHash(indexed map[string]string) string {
	names := make([]string, 0, len(indexed))
	for name := range indexed {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+indexed[name])
	}

	sum := blake3.Sum256([]byte(strings.Join(parts, hashSeparator)))
	return hex.EncodeToString(sum[:])
}
