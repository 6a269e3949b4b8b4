// Package update checks GitHub releases for a newer toneprint build
// and swaps the running binary in place.
package update

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Repo       = "toneprint/toneprint"
	BinaryName = "toneprint"
)

// Release describes a published build with its download and checksum
// assets.
type Release struct {
	Version     string
	AssetURL    string
	ChecksumURL string
}

// parseVersion reads "v1.2.3" into its numeric fields. Pre-release and
// build suffixes are ignored.
func parseVersion(s string) (out [3]int, err error) {
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, ".", 4)
	if len(parts) != 3 {
		return out, fmt.Errorf("version %q: want major.minor.patch", s)
	}
	for i, p := range parts {
		out[i], err = strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("version %q: %w", s, err)
		}
	}
	return out, nil
}

func olderThan(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// NewerThan reports whether the release supersedes the running build.
// Unparseable versions (including "dev") never update.
func (r Release) NewerThan(current string) bool {
	cur, err := parseVersion(current)
	if err != nil {
		return false
	}
	rel, err := parseVersion(r.Version)
	if err != nil {
		return false
	}
	return olderThan(cur, rel)
}
