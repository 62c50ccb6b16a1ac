package engine

import (
	"bytes"
	"regexp"
	"time"
)

const (
	defaultMatchBudget  = 5 * time.Second
	defaultMaxFileBytes = 2 * 1024 * 1024
	defaultEvidenceCap  = 10
	binarySniffLen      = 8000
)

// matchOffsets returns the start offset of every match of re in content.
// The expression gets one budget window per scan unit; if it has not
// finished by then the unit is treated as a non-match so a pathological
// pattern can never hang the run.
func matchOffsets(re *regexp.Regexp, content string, budget time.Duration) (offsets []int, ok bool) {
	if budget <= 0 {
		budget = defaultMatchBudget
	}

	done := make(chan []int, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- nil
			}
		}()
		raw := re.FindAllStringIndex(content, -1)
		out := make([]int, 0, len(raw))
		for _, pair := range raw {
			if len(pair) == 2 {
				out = append(out, pair[0])
			}
		}
		done <- out
	}()

	select {
	case offsets = <-done:
		return offsets, true
	case <-time.After(budget):
		return nil, false
	}
}

// lineNumbers converts ascending byte offsets into 1-based line numbers.
func lineNumbers(content string, offsets []int) []int {
	lines := make([]int, 0, len(offsets))
	line := 1
	cursor := 0
	for _, off := range offsets {
		if off < 0 {
			off = 0
		}
		if off > len(content) {
			off = len(content)
		}
		for ; cursor < off; cursor++ {
			if content[cursor] == '\n' {
				line++
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// looksBinary applies the NUL-byte heuristic over the head of the file.
func looksBinary(b []byte) bool {
	n := len(b)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}
