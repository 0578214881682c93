package assets

import "strings"

// Match reports whether name matches the glob pattern as a whole. The pattern
// language is small: '*' matches any run of characters, '?'
// matches exactly one, everything else is literal.
func Match(pattern, name string) bool {
	p, n := 0, 0
	star, mark := -1, 0
	for n < len(name) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == name[n]):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = n
			p++
		case star >= 0:
			p = star + 1
			mark++
			n = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// MatchFold is Match ignoring ASCII case.
func MatchFold(pattern, name string) bool {
	return Match(strings.ToLower(pattern), strings.ToLower(name))
}
