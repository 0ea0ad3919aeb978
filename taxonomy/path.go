package taxonomy

import (
	"fmt"
	"strconv"
	"strings"
)

// PathSeparator joins category ids inside a materialized path
const PathSeparator = "/"

// EncodePath builds the materialized path of a category from its ancestor ids
// (root first) and its own id, e.g. [1, 6] + 27 -> "1/6/27".
func EncodePath(ancestors []int64, self int64) (string, error) {
	if self <= 0 {
		return "", fmt.Errorf("%w: invalid id %d", ErrInvalidPath, self)
	}

	var b strings.Builder
	for _, id := range ancestors {
		if id <= 0 {
			return "", fmt.Errorf("%w: invalid ancestor id %d", ErrInvalidPath, id)
		}
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteString(PathSeparator)
	}
	b.WriteString(strconv.FormatInt(self, 10))
	return b.String(), nil
}

// DecodePath splits a materialized path back into its ids, root first
func DecodePath(path string) ([]int64, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	segments := strings.Split(path, PathSeparator)
	ids := make([]int64, 0, len(segments))
	for _, segment := range segments {
		id, err := strconv.ParseInt(segment, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: bad segment %q in %q", ErrInvalidPath, segment, path)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// childPath appends id to an already validated parent path
func childPath(parent string, id int64) string {
	return parent + PathSeparator + strconv.FormatInt(id, 10)
}

// IsDescendantOrSelf reports whether candidate lies in the subtree rooted at
// ancestor. Matching stops at separator boundaries, so "12" is not under "1".
func IsDescendantOrSelf(candidate, ancestor string) bool {
	if candidate == ancestor {
		return true
	}
	return strings.HasPrefix(candidate, ancestor+PathSeparator)
}
