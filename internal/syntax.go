package internal

import (
	"regexp"
	"strings"
)

// Route patterns use {name} for single-segment parameters and {...name}
// for a trailing wildcard that captures the rest of the path. The same
// syntax applies to domain patterns, where {name} captures one hostname
// label.
var placeholderRe = regexp.MustCompile(`\{(\.\.\.)?([A-Za-z_][A-Za-z0-9_]*)\}`)

// placeholder is one {name} or {...name} occurrence in a pattern.
type placeholder struct {
	name     string
	wildcard bool
}

// isWordChar reports whether b may appear in a parameter name or a literal
// identifier. Word characters adjacent to a placeholder indicate a
// partial-segment capture like "x{id}", which is rejected.
func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Validate checks a route path or domain pattern for syntax errors.
// It fails fast at definition time on:
//
//   - a bare "*" (wildcards are written {...name})
//   - a ":" (reserved, not part of the placeholder syntax)
//   - a wildcard written {name...} instead of {...name}
//   - a placeholder that does not occupy a whole segment component
//     ("x{id}" or "{id}x"; separators and adjacency like "{id}.txt",
//     "@{scope}/{pkg}" or "{a}{b}" remain valid)
//   - leftover braces after stripping well-formed placeholders
//     (unbalanced or nested braces, empty or malformed names)
func Validate(pattern string) error {
	if strings.Contains(pattern, "*") {
		return &SyntaxError{Pattern: pattern, Reason: "wildcards are written {...name}, not *"}
	}
	if strings.Contains(pattern, ":") {
		return &SyntaxError{Pattern: pattern, Reason: "\":\" is reserved and not allowed in patterns"}
	}
	if trailingDotsRe.MatchString(pattern) {
		return &SyntaxError{Pattern: pattern, Reason: "wildcard parameters are written {...name}, not {name...}"}
	}

	for _, loc := range placeholderRe.FindAllStringIndex(pattern, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isWordChar(pattern[start-1]) {
			return &SyntaxError{Pattern: pattern, Reason: "parameter must occupy a whole path segment"}
		}
		if end < len(pattern) && isWordChar(pattern[end]) {
			return &SyntaxError{Pattern: pattern, Reason: "parameter must occupy a whole path segment"}
		}
	}

	stripped := placeholderRe.ReplaceAllString(pattern, "")
	if strings.ContainsAny(stripped, "{}") {
		return &SyntaxError{Pattern: pattern, Reason: "unbalanced or malformed braces"}
	}
	return nil
}

var trailingDotsRe = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\.\.\.\}`)

// validateWildcardPlacement checks that a {...name} placeholder, if
// present, is the final path segment. Applied to fully-prefixed paths
// during flattening, so a group prefix cannot smuggle a wildcard into a
// non-terminal position.
func validateWildcardPlacement(path string) error {
	phs := placeholders(path)
	for i, ph := range phs {
		if !ph.wildcard {
			continue
		}
		if i != len(phs)-1 {
			return &SyntaxError{Pattern: path, Reason: "wildcard parameter must be the final segment"}
		}
		// The wildcard must be the entire last segment.
		want := "{..." + ph.name + "}"
		if !strings.HasSuffix(path, want) {
			return &SyntaxError{Pattern: path, Reason: "wildcard parameter must be the final segment"}
		}
		rest := strings.TrimSuffix(path, want)
		if rest != "" && !strings.HasSuffix(rest, "/") {
			return &SyntaxError{Pattern: path, Reason: "wildcard parameter must occupy the whole final segment"}
		}
	}
	return nil
}

// placeholders returns the placeholders of a pattern in order of
// appearance. The pattern is assumed to have passed Validate.
func placeholders(pattern string) []placeholder {
	matches := placeholderRe.FindAllStringSubmatch(pattern, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]placeholder, 0, len(matches))
	for _, m := range matches {
		out = append(out, placeholder{name: m[2], wildcard: m[1] != ""})
	}
	return out
}

// paramNames returns the set of parameter names a route with the given
// path and domain patterns will capture.
func paramNames(path, domain string) map[string]struct{} {
	names := make(map[string]struct{})
	for _, ph := range placeholders(domain) {
		names[ph.name] = struct{}{}
	}
	for _, ph := range placeholders(path) {
		names[ph.name] = struct{}{}
	}
	return names
}
