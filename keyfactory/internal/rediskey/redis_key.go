// Package rediskey joins, splits and validates colon separated Redis keys.
package rediskey

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type GlobWildcard string

const (
	WildcardAnyChar   GlobWildcard = "?" // Matches exactly one character.
	WildcardAnyString GlobWildcard = "*" // Matches zero or more characters.

	Delimiter = ":"

	globChars    = "*?[]"
	keyMaxLength = 1536 // Blob names alone may be 1024 characters.
)

var ErrInvalidKey = errors.New("invalid redis key")

var allowedChars = regexp.MustCompile(`^[a-zA-Z0-9:_\-\*\?\[\]\(\),\./=@+]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidKey, fmt.Sprintf(format, args...))
}

// Validate checks that key is non-empty, within the length limit, made of allowed
// characters and neither starts nor ends with the delimiter.
func Validate(key string) error {
	switch {
	case key == "":
		return invalid("key must not be empty")
	case len(key) > keyMaxLength:
		return invalid("key exceeds %d characters", keyMaxLength)
	case !allowedChars.MatchString(key):
		return invalid("key '%s' contains invalid characters", key)
	case strings.HasPrefix(key, Delimiter), strings.HasSuffix(key, Delimiter):
		return invalid("key '%s' must not start or end with '%s'", key, Delimiter)
	}
	return nil
}

// Fragment checks that f is a valid key holding a single fragment.
// Case is significant; blob names are case sensitive.
func Fragment(f string) error {
	if strings.Contains(f, Delimiter) {
		return invalid("fragment '%s' must not contain '%s'", f, Delimiter)
	}
	return Validate(f)
}

// HasGlob reports whether s contains glob pattern characters.
func HasGlob(s string) bool {
	return strings.ContainsAny(s, globChars)
}

// Join joins the non-empty fragments with the delimiter.
//
// Example:
//
//	Join("", "blob", "reports") // "blob:reports"
func Join(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, Delimiter)
}

// Split splits key into at most n fragments; the last one keeps any remaining delimiters.
// n < 0 returns all fragments.
func Split(key string, n int) []string {
	return strings.SplitN(key, Delimiter, n)
}

// Pattern returns a match pattern for every key one level below base.
//
// Example:
//
//	Pattern("blob:reports", WildcardAnyString) // "blob:reports:*"
func Pattern(base string, wc GlobWildcard) string {
	return base + Delimiter + string(wc)
}
