// Package slug derives URL-safe post identifiers from titles.
package slug

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxBaseLength caps a title-derived slug before any counter suffix.
const MaxBaseLength = 200

// Fallback is used when a title has no ASCII letters or digits to keep.
const Fallback = "post"

var (
	disallowed = regexp.MustCompile(`[^a-z0-9_\s-]`)
	separators = regexp.MustCompile(`[-\s]+`)
	urlSafe    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ExistsFunc reports whether candidate is already taken by another post.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Slugify lower-cases title, folds accents to ASCII, drops everything that is
// not a letter, digit, underscore, hyphen or space, and joins words with '-'.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII))), title)
	if err != nil {
		folded = title
	}

	s := disallowed.ReplaceAllString(strings.ToLower(folded), "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")

	if len(s) > MaxBaseLength {
		s = strings.TrimRight(s[:MaxBaseLength], "-_")
	}
	return s
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// IsURLSafe reports whether an explicit slug may be stored as given.
func IsURLSafe(s string) bool {
	return urlSafe.MatchString(s)
}

// Base returns Slugify(title), or Fallback when nothing survives.
func Base(title string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return Fallback
}

// Unique returns base if it is free, otherwise the first free base-1, base-2, ...
// The check is advisory; the store's unique index settles concurrent writers.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// Resolve keeps a non-empty explicit slug untouched and otherwise derives a
// unique one from title.
func Resolve(ctx context.Context, explicit, title string, exists ExistsFunc) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	return Unique(ctx, Base(title), exists)
}
