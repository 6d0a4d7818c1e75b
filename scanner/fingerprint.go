package scanner

import (
	"strconv"
	"time"

	"github.com/poiesic/corpusit/core"
)

// DefaultMaxAge is how long a fingerprint is trusted before the cache is
// rebuilt regardless of structural equality.
const DefaultMaxAge = 24 * time.Hour

// Fingerprint computes a structural fingerprint of a source directory: unit
// count, total byte size and a hash over every unit's path, size and
// modification time. File contents are never read. All units participate in
// the hash, not a bounded sample.
func Fingerprint(dir string) (*core.Fingerprint, error) {
	units, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	return FingerprintUnits(units), nil
}

// FingerprintUnits computes a fingerprint from an already-scanned unit list.
// The list is expected in the stable order Scan returns.
func FingerprintUnits(units []core.ContentUnit) *core.Fingerprint {
	var totalSize int64
	for _, u := range units {
		totalSize += u.Size
	}

	parts := make([]string, 0, 3*len(units)+2)
	parts = append(parts,
		strconv.Itoa(len(units)),
		strconv.FormatInt(totalSize, 10),
	)
	for _, u := range units {
		parts = append(parts,
			u.Path,
			strconv.FormatInt(u.Size, 10),
			strconv.FormatInt(u.ModTime.UnixNano(), 10),
		)
	}

	return &core.Fingerprint{
		UnitCount: len(units),
		TotalSize: totalSize,
		Hash:      core.HashStrings(parts...),
		CreatedAt: time.Now().UTC(),
	}
}

// Valid reports whether a cached fingerprint can still be trusted against
// the current state of the source directory. False when the cached
// fingerprint is absent, older than maxAge (DefaultMaxAge when maxAge <= 0),
// or structurally different from current. Ambiguity resolves to false.
func Valid(cached, current *core.Fingerprint, maxAge time.Duration) bool {
	if cached == nil || current == nil {
		return false
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if time.Since(cached.CreatedAt) > maxAge {
		return false
	}
	return cached.Equal(current)
}
