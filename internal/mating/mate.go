package mating

import (
	"strings"
	"unicode"
)

// maleSuffix is sometimes appended to a male's code in notes and mate
// fields, and sometimes omitted.
const maleSuffix = "公"

// mateChangeMarker precedes the new mate's code in a free-text description,
// e.g. "3/2 更换配偶为 HB-2公".
const mateChangeMarker = "更换配偶为"

// MateCodeCandidates returns code and its variant with the male suffix added
// or removed. It returns nil for an empty code.
func MateCodeCandidates(code string) []string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if trimmed, ok := strings.CutSuffix(code, maleSuffix); ok {
		return []string{code, trimmed}
	}
	return []string{code, code + maleSuffix}
}

// ParseMateChange returns the code from the last mate-change note in a
// description, or "" when there is none.
func ParseMateChange(description string) string {
	idx := strings.LastIndex(description, mateChangeMarker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeftFunc(description[idx+len(mateChangeMarker):], func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '：'
	})
	end := strings.IndexFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",，。;；()（）", r)
	})
	if end >= 0 {
		rest = rest[:end]
	}
	return rest
}
