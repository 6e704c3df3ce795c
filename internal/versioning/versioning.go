// Package versioning turns the field-version ledger into client-facing
// concurrency tokens: the per-field etags map and the resource-level ETag
// header, plus the assertion check behind the 409 path.
package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// BuildETagMap renders a version map as the per-field etags exposed in the
// resource document, e.g. {"service.url": "v3"}.
func BuildETagMap(versions map[string]int) map[string]string {
	etags := make(map[string]string, len(versions))
	for path, version := range versions {
		etags[path] = fmt.Sprintf("v%d", version)
	}
	return etags
}

// ResourceETag hashes the version map into a weak ETag. The map is
// canonicalized as sorted-key compact JSON first, so the token is stable
// across map iteration order and changes whenever any tracked field's
// version changes.
func ResourceETag(versions map[string]int) string {
	paths := make([]string, 0, len(versions))
	for path := range versions {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	canonical := make([]byte, 0, 64)
	canonical = append(canonical, '{')
	for i, path := range paths {
		if i > 0 {
			canonical = append(canonical, ',')
		}
		key, _ := json.Marshal(path)
		canonical = append(canonical, key...)
		canonical = append(canonical, ':')
		canonical = append(canonical, []byte(fmt.Sprintf("%d", versions[path]))...)
	}
	canonical = append(canonical, '}')

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(sum[:]))
}

// AssertVersions returns the paths whose asserted version does not match
// the current ledger. Paths asserted but absent from the ledger mismatch
// unless asserted as 0.
func AssertVersions(current map[string]int, asserted map[string]int) []string {
	var mismatched []string
	for path, assertedVersion := range asserted {
		if current[path] != assertedVersion {
			mismatched = append(mismatched, path)
		}
	}
	sort.Strings(mismatched)
	return mismatched
}
