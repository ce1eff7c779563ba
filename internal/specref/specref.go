// Package specref holds the loose reference rules shared by the loader,
// the dependency graph and the validator: how a sequence number is read
// from a slug and how a raw dependency reference matches a spec.
package specref

import (
	"fmt"
	"strconv"
	"strings"
)

// IDPrefix is prepended to a slug to form a spec's stable identifier.
const IDPrefix = "fs-"

// ID returns the stable identifier for a spec slug.
func ID(slug string) string {
	return IDPrefix + slug
}

// ParseNumber reads the sequence number from the digits before the first
// hyphen of a slug. It returns nil when that segment is not an integer.
func ParseNumber(slug string) *int {
	n, ok := LeadingNumber(slug)
	if !ok {
		return nil
	}
	return &n
}

// LeadingNumber trims ref and parses the segment before its first hyphen.
// "035-my-spec", "035" and "35" all yield 35.
func LeadingNumber(ref string) (int, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(ref), "-")
	n, err := strconv.ParseInt(head, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Padded formats a sequence number the way slugs usually spell it.
func Padded(n int) string {
	return fmt.Sprintf("%03d", n)
}

// Aliases returns every key a spec can be referenced by: its slug and,
// when numbered, the zero-padded and the bare number.
func Aliases(slug string, number *int) []string {
	if number == nil {
		return []string{slug}
	}
	return []string{slug, Padded(*number), strconv.Itoa(*number)}
}

// Matches reports whether a raw dependency reference points at the spec
// with the given slug and number. An exact slug match wins; otherwise a
// numbered spec matches when the reference's leading number equals it.
func Matches(ref, slug string, number *int) bool {
	ref = strings.TrimSpace(ref)
	if ref == slug {
		return true
	}
	if number == nil {
		return false
	}
	n, ok := LeadingNumber(ref)
	return ok && n == *number
}
