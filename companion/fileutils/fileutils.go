package fileutils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FlattenLine collapses every run of whitespace (newlines included) into a single space
// so a value can be rendered on one line.
func FlattenLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// ReadTrimmedFile reads path and returns its whitespace-trimmed contents, failing on empty files.
func ReadTrimmedFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("read file: empty path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("%s is empty after trimming whitespace", path)
	}
	return s, nil
}
