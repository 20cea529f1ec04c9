package helpers

import "strings"

// DefaultBranch is used whenever a ref cannot be derived from a payload.
const DefaultBranch = "main"

// BranchFromRef derives a branch name from a git ref: the final path segment, or DefaultBranch when empty.
func BranchFromRef[S string | *string](ref S) string {
	var r string
	switch v := any(ref).(type) {
	case string:
		r = v
	case *string:
		r = String(v)
	}
	r = strings.TrimSpace(r)
	if i := strings.LastIndex(r, "/"); i >= 0 {
		r = r[i+1:]
	}
	if r == "" {
		return DefaultBranch
	}
	return r
}

// NormaliseRef strips the branch ref prefix.
func NormaliseRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
