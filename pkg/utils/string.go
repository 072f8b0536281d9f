package utils

// Truncate shortens s to at most maxLen runes, replacing the tail with "…"
// when it is cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	return string(r[:maxLen-1]) + "…"
}
