package ffmpeg

import "strings"

// CommandLine renders args as a single shell-pasteable line. Arguments with
// whitespace or shell metacharacters are single-quoted.
func CommandLine(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if needsQuotes(a) {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || strings.ContainsRune(`"'\$`+"`"+`;&|<>()[]{}*?!#~`, r) {
			return true
		}
	}
	return false
}
