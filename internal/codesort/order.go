package codesort

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Key is everything needed to place one record in natural code order.
type Key struct {
	Code       string
	CreatedAt  time.Time
	Components Components
}

// NewKey parses code and returns its sort key.
func NewKey(code string, createdAt time.Time) Key {
	return Key{Code: code, CreatedAt: createdAt, Components: Parse(code)}
}

// Compare orders keys by prefix, parent number, child number and child
// letter (missing parts last), then by the raw code, then newest first.
func Compare(a, b Key) int {
	if c := cmpNullsLast(a.Components.Prefix, b.Components.Prefix); c != 0 {
		return c
	}
	if c := cmpNullsLast(a.Components.ParentNumber, b.Components.ParentNumber); c != 0 {
		return c
	}
	if c := cmpNullsLast(a.Components.ChildNumber, b.Components.ChildNumber); c != 0 {
		return c
	}
	if c := cmpNullsLast(a.Components.ChildLetter, b.Components.ChildLetter); c != 0 {
		return c
	}
	if c := strings.Compare(a.Code, b.Code); c != 0 {
		return c
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

// SortCodes returns codes in natural order without modifying the input.
func SortCodes(codes []string) []string {
	keys := make([]Key, len(codes))
	for i, code := range codes {
		keys[i] = NewKey(code, time.Time{})
	}
	slices.SortStableFunc(keys, Compare)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Code
	}
	return out
}

func cmpNullsLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// Upper normalises an identifier-like code for storage: surrounding
// whitespace is dropped and letters are upper-cased. Inner hyphens and
// spaces are kept as entered.
func Upper(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
