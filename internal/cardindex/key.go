// Package cardindex builds and serves the immutable lookup snapshot over
// the deduplicated card catalog.
package cardindex

import (
	"strconv"
	"strings"
	"unicode"
)

// setAliases maps vendor/alternate set-code spellings to the canonical
// provider codes. Only real mappings belong here.
var setAliases = map[string]string{
	"vthb": "thb", // vendor spelling for the Theros Beyond Death prerelease sheets
	"dar":  "dom", // MTGO code for Dominaria
	"con_": "con", // vendor workaround for the reserved filename
}

// NormalizeSetCode lowercases the code and maps known vendor aliases to
// the canonical spelling.
func NormalizeSetCode(code string) string {
	sc := strings.ToLower(strings.TrimSpace(code))
	if sc == "" {
		return sc
	}
	if canonical, ok := setAliases[sc]; ok {
		return canonical
	}
	return sc
}

// nameKey folds a card name to a case- and punctuation-insensitive key.
func nameKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// searchText folds a name for substring search: lowercase, punctuation
// treated as word separators, spaces compressed.
func searchText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func keySetCN(setCode, collectorNumber string) string {
	return strings.ToLower(strings.TrimSpace(setCode)) + "::" + strings.ToLower(strings.TrimSpace(collectorNumber))
}

type setNumKey struct {
	set string
	num int
}

// cnVariants generates plausible spellings of a collector number:
// leading zeros ("001" -> "1"), letter suffixes ("256a" -> "256"), and a
// digits-only last resort.
func cnVariants(cn string) []string {
	s := strings.ToLower(strings.TrimSpace(cn))
	if s == "" {
		return nil
	}
	out := []string{s}
	add := func(v string) {
		for _, have := range out {
			if have == v {
				return
			}
		}
		out = append(out, v)
	}

	if stripped := strings.TrimLeft(s, "0"); stripped != "" {
		add(stripped)
	} else {
		add("0")
	}

	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) > 0 {
		add(string(digits))
	}
	return out
}

// cnNum extracts the leading numeric part of a collector number.
func cnNum(cn string) (int, bool) {
	s := strings.TrimSpace(cn)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
