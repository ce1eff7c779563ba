package parser

import (
	"errors"
	"strings"
)

// ErrNoFrontmatter is returned when a document has no frontmatter block to edit.
var ErrNoFrontmatter = errors.New("parser: no frontmatter block")

// SetField sets a top-level frontmatter key to a single-line scalar value.
// The first unindented line starting with "key:" is replaced; when there is
// none the line is appended to the block. Every other byte of the document,
// body included, is left as it was.
//
// Only single-line values are handled: a key whose current value spans
// several lines keeps its continuation lines.
func SetField(content, key, value string) (string, error) {
	blockStart, blockEnd, _, ok := locate(content)
	if !ok {
		return "", ErrNoFrontmatter
	}

	newLine := key + ": " + value
	lines := strings.SplitAfter(content[blockStart:blockEnd], "\n")
	replaced := false
	for i, line := range lines {
		if !isFieldLine(line, key) {
			continue
		}
		eol := "\n"
		if strings.HasSuffix(line, "\r\n") {
			eol = "\r\n"
		}
		lines[i] = newLine + eol
		replaced = true
		break
	}
	block := strings.Join(lines, "")
	if !replaced {
		block += newLine + "\n"
	}
	return content[:blockStart] + block + content[blockEnd:], nil
}

// HasField reports whether the frontmatter block has a top-level line for key.
func HasField(content, key string) bool {
	blockStart, blockEnd, _, ok := locate(content)
	if !ok {
		return false
	}
	for _, line := range strings.Split(content[blockStart:blockEnd], "\n") {
		if isFieldLine(line, key) {
			return true
		}
	}
	return false
}

func isFieldLine(line, key string) bool {
	return strings.HasPrefix(line, key+":")
}
