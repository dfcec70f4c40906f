// Package sanitize strips a narrow set of markup-risk characters from
// free-text fields before they reach the store.
//
// This is intentionally not an HTML sanitizer: it removes the literal angle
// brackets that would let stored text open a tag, and nothing else. Output
// encoding at the presentation layer remains the real XSS defense; this
// package only keeps obviously hostile input out of the data set.
package sanitize

import "strings"

// replacer removes the characters that can open or close an HTML tag.
var replacer = strings.NewReplacer("<", "", ">", "")

// Clean removes every literal '<' and '>' and trims surrounding whitespace.
// Stripping happens before trimming so that whitespace exposed by a removed
// bracket is trimmed too, which makes Clean idempotent:
// Clean(Clean(s)) == Clean(s) for all s.
func Clean(s string) string {
	return strings.TrimSpace(replacer.Replace(s))
}

// CleanAll applies Clean to every element and returns a new slice. The input
// is never modified.
func CleanAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Clean(s)
	}
	return out
}
