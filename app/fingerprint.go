package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// fingerprintVersion is digested with every payload so that a future change
// to the prompt/response contract can bump the version and naturally miss
// every previously cached row, instead of adding TTLs to a permanent cache.
const fingerprintVersion = "v1"

// DeckFingerprint derives the cache key for a deck from its card IDs.
// The IDs are sorted ascending before hashing so any permutation of the
// same multiset yields the same fingerprint.
func DeckFingerprint(cardIDs []int64) string {
	sorted := make([]int64, len(cardIDs))
	copy(sorted, cardIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// json.Marshal on a sorted []int64 cannot fail.
	data, _ := json.Marshal(sorted)
	return digest(data)
}

// CardFingerprint derives the cache key for a single card name. The raw
// string is digested as-is: names differing only in case or surrounding
// whitespace are distinct cache entries.
func CardFingerprint(cardName string) string {
	return digest([]byte(cardName))
}

func digest(data []byte) string {
	h := sha256.New()
	h.Write([]byte(fingerprintVersion + ":"))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
