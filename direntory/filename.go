package direntory

import (
	"strings"

	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
)

// ValidateFilename splits and validates an 8.3 filename, returning the
// name and extension each uppercased and space-padded to their fixed
// widths, ready for Encode.
func ValidateFilename(filename string) (name, ext string, err error) {
	filename = strings.ToUpper(strings.TrimSpace(filename))
	if filename == "" {
		return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "filename cannot be empty")
	}

	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		name, ext = filename[:idx], filename[idx+1:]
	} else {
		name, ext = filename, ""
	}

	if len(name) == 0 {
		return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "filename cannot be empty")
	}
	if len(name) > 8 {
		return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "filename %q exceeds 8 characters", name)
	}
	if len(ext) > 3 {
		return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "extension %q exceeds 3 characters", ext)
	}

	for _, c := range name {
		if !strings.ContainsRune(geometry.ValidFilenameChars, c) {
			return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "invalid character %q in filename", c)
		}
	}
	for _, c := range ext {
		if !strings.ContainsRune(geometry.ValidFilenameChars, c) {
			return "", "", vfaterr.NewWithMessage(vfaterr.EINVAL, "invalid character %q in extension", c)
		}
	}

	return padRight(name, 8), padRight(ext, 3), nil
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// HasWildcards reports whether a pattern contains '*' or '?'.
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// MatchFilename reports whether a DOS-style wildcard pattern matches a
// filename. '*' matches any run of characters (including none); '?'
// matches exactly one character. As in MS-DOS, "*" and "*.*" are distinct:
// the bare "*" also matches names with no extension, while "*.*" requires
// a literal dot somewhere in the name.
func MatchFilename(pattern, filename string) bool {
	pattern = strings.ToUpper(pattern)
	filename = strings.ToUpper(filename)
	return matchComponent([]rune(pattern), []rune(filename))
}

func matchComponent(pattern, name []rune) bool {
	// Dynamic-programming wildcard match; small inputs (<=12 chars) make
	// the simplicity worth more than the loop's crudeness.
	rows, cols := len(pattern)+1, len(name)+1
	dp := make([][]bool, rows)
	for i := range dp {
		dp[i] = make([]bool, cols)
	}
	dp[0][0] = true
	for i := 1; i <= len(pattern); i++ {
		if pattern[i-1] == '*' {
			dp[i][0] = dp[i-1][0]
		}
	}
	for i := 1; i <= len(pattern); i++ {
		for j := 1; j <= len(name); j++ {
			switch pattern[i-1] {
			case '*':
				dp[i][j] = dp[i-1][j] || dp[i][j-1]
			case '?':
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = dp[i-1][j-1] && pattern[i-1] == name[j-1]
			}
		}
	}
	return dp[len(pattern)][len(name)]
}

// MatchEntries filters a slice of entries by a DOS wildcard pattern
// against their "NAME.EXT" full name. With no wildcards present, this is
// an exact, case-insensitive match.
func MatchEntries(entries []*Entry, pattern string) []*Entry {
	if !HasWildcards(pattern) {
		upper := strings.ToUpper(pattern)
		var out []*Entry
		for _, e := range entries {
			if strings.ToUpper(e.Name) == upper {
				out = append(out, e)
			}
		}
		return out
	}

	var out []*Entry
	for _, e := range entries {
		if MatchFilename(pattern, e.Name) {
			out = append(out, e)
		}
	}
	return out
}
