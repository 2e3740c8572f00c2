package report

import "strings"

// sanitizeFilename turns a target host or address into a safe path element
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		".", "_",
		":", "_",
		"/", "_",
		"\\", "_",
		" ", "_",
		"[", "",
		"]", "",
	)
	s = replacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	if s == "" {
		return "unknown"
	}
	return s
}
