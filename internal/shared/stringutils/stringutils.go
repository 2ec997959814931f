package stringutils

import "fmt"

// Truncate shortens s to at most n runes, ending with "…" if it was cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// Minutes renders a minute count as "1h 05m" or "42m".
func Minutes(m float64) string {
	total := int(m + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}
