package utils

// Truncate shortens s to at most maxLen bytes, appending "..." when cut.
// Non-positive maxLen returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
