package streams

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// contentHash combines the Stream Entry's user-provided fields by hashing
// each field independently and XORing the results, so the combination is
// order-insensitive to which field changed and cheap to recompute.
func contentHash(inputURI, outputURI string, framePath []string, restartPolicy RestartPolicy) uint64 {
	h := xxhash.Sum64String(inputURI)
	h ^= xxhash.Sum64String(outputURI)
	h ^= xxhash.Sum64String(strings.Join(framePath, "/"))
	h ^= xxhash.Sum64String(restartPolicy.String())
	return h
}
