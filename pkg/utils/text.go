// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"strings"
)

// maxLineBytes bounds a single line; KB vocabularies can carry long URIs.
const maxLineBytes = 1 << 20

// Lines returns a lazy sequence over the lines of the file at path with the
// trailing "\r\n" or "\n" removed. The file is opened when iteration starts and
// closed when it ends or the consumer stops early. An open or read error is
// yielded once as the second value, after which the sequence stops.
func Lines(path string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield("", fmt.Errorf("open %s: %w", path, err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			if !yield(strings.TrimRight(scanner.Text(), "\r"), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("read %s: %w", path, err))
		}
	}
}

// FirstField returns the part of line before the first tab, or the whole
// line when it has no tab.
func FirstField(line string) string {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
