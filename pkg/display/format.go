package display

import (
	"fmt"
	"strings"
)

// humanCount shortens big counters for the search line, 1234567 reads
// as 1.2M.
func humanCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1e3)
	}
	return fmt.Sprint(n)
}

// actionLine joins actions with spaces, same shape as a pv string in a
// chess engine.
func actionLine[A comparable](line []A) string {
	parts := make([]string, len(line))
	for i, a := range line {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}
