package mmio

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader returns a reader that converts UTF-16 input with a
// byte order mark to UTF-8 and strips a UTF-8 byte order mark.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ReadLines reads all lines of a text document. Line endings are removed.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(NewTextReader(r))
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadText reads a whole text document as UTF-8.
func ReadText(r io.Reader) (string, error) {
	b, err := io.ReadAll(NewTextReader(r))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
