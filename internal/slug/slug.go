// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Generate and Unique will produce.
const MaxLength = 300

// maxAttempts bounds the suffix search in Unique.
const maxAttempts = 1000

// ErrEmpty is returned by Unique when the base slug is empty.
var ErrEmpty = errors.New("slug: empty base")

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace matches runs of spaces, tabs and newlines.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// valid matches a well-formed slug.
	valid = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Generate creates a URL-friendly slug from the given string.
// Accented Latin letters are folded to ASCII; other characters are dropped.
// Example: "Crème Brûlée, 2026!" → "creme-brulee-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = fold(result)
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return truncate(result, MaxLength)
}

// Valid reports whether s is already in slug form.
func Valid(s string) bool {
	return len(s) <= MaxLength && valid.MatchString(s)
}

// Unique returns base if exists reports it free, otherwise the first free
// candidate of base-2, base-3, and so on.
func Unique(base string, exists func(string) (bool, error)) (string, error) {
	if base == "" {
		return "", ErrEmpty
	}
	taken, err := exists(base)
	if err != nil {
		return "", fmt.Errorf("check slug %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for n := 2; n <= maxAttempts; n++ {
		suffix := fmt.Sprintf("-%d", n)
		candidate := truncate(base, MaxLength-len(suffix)) + suffix
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}

// fold strips combining marks after canonical decomposition, so "é"
// becomes "e". Characters without a decomposition are left untouched.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// truncate cuts an ASCII slug to at most n bytes without leaving a
// trailing hyphen.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
