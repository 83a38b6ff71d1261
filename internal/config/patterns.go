// ABOUTME: Default exclusion globs and normalisation of user-supplied patterns
// ABOUTME: Bare directory names become **/name/** so they prune whole subtrees
package config

import "strings"

// DefaultExcludes are always excluded, whatever the config file says.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/.next/**",
	"**/.turbo/**",
	"**/coverage/**",
	"**/.cache/**",
}

// NormalizePattern converts backslashes to slashes and expands a bare
// directory name such as "vendor" into "**/vendor/**".
func NormalizePattern(p string) string {
	s := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if s != "" && !strings.ContainsAny(s, "*?/") {
		return "**/" + s + "/**"
	}
	return s
}

// MergeExcludes returns the defaults followed by the normalised user
// patterns, without duplicates or empty entries.
func MergeExcludes(user []string) []string {
	seen := make(map[string]bool, len(DefaultExcludes)+len(user))
	out := make([]string, 0, len(DefaultExcludes)+len(user))
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, p := range DefaultExcludes {
		add(p)
	}
	for _, p := range user {
		add(NormalizePattern(p))
	}
	return out
}
