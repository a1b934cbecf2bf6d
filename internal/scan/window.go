package scan

import "strings"

// WindowBounds returns the half-open line range [start, end) covering before
// lines above idx and after lines below it, clipped to the file.
func WindowBounds(n, idx, before, after int) (int, int) {
	if n == 0 {
		return 0, 0
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	start := idx - before
	if start < 0 {
		start = 0
	}
	end := idx + after + 1
	if end > n {
		end = n
	}
	return start, end
}

// Window returns the newline-joined text of lines around idx, including the
// line itself. It never indexes outside lines.
func Window(lines []string, idx, before, after int) string {
	start, end := WindowBounds(len(lines), idx, before, after)
	return strings.Join(lines[start:end], "\n")
}
