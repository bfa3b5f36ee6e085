// Package codesort parses breeder codes such as "白化-10" or "HB-1-A" into
// components that sort in natural human order.
package codesort

import (
	"strconv"
	"strings"
)

// Components are the sortable parts of a code. Nil means the part was not
// recognised.
type Components struct {
	Prefix       *string
	ParentNumber *int
	ChildNumber  *int
	ChildLetter  *string
}

// Parse splits code on '-' and extracts its components. It never fails; an
// unrecognised suffix leaves only the prefix set.
func Parse(code string) Components {
	var c Components

	code = strings.TrimSpace(code)
	if code == "" {
		return c
	}

	parts := strings.Split(code, "-")
	prefix := parts[0]
	c.Prefix = &prefix

	switch len(parts) {
	case 2:
		if n, ok := number(parts[1]); ok {
			c.ParentNumber = &n
		} else if l, ok := letter(parts[1]); ok {
			c.ChildLetter = &l
		}
	case 3:
		n, ok := number(parts[1])
		if !ok {
			break
		}
		c.ParentNumber = &n
		if child, ok := number(parts[2]); ok {
			c.ChildNumber = &child
		} else if l, ok := letter(parts[2]); ok {
			c.ChildLetter = &l
		}
	}

	return c
}

// number reports whether s is a non-empty run of ASCII digits and returns its
// value. Leading zeros are accepted. A run too large for an int is not a
// number, so such a segment is treated like any other unrecognised one.
func number(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// letter reports whether s is exactly one ASCII letter and returns it in
// upper case.
func letter(s string) (string, bool) {
	if len(s) != 1 {
		return "", false
	}
	b := s[0]
	switch {
	case b >= 'a' && b <= 'z':
		return string(b - 'a' + 'A'), true
	case b >= 'A' && b <= 'Z':
		return s, true
	}
	return "", false
}
