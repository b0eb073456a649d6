package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeFieldName folds a header or alias for comparison: spaces,
// underscores and hyphens are removed, accents dropped and letters lowercased.
// "First Name", "first_name" and "FirstName" all become "firstname"; "Prénom"
// becomes "prenom".
func NormalizeFieldName(s string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r == ' ' || r == '_' || r == '-' || r == '\t':
			continue
		case unicode.Is(unicode.Mn, r):
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// AliasIndex maps normalized names to the header text found in one file.
// When two headers normalize alike the later one wins.
type AliasIndex struct {
	byName map[string]string
}

// NewAliasIndex indexes the headers of a file.
func NewAliasIndex(headers []string) AliasIndex {
	idx := AliasIndex{byName: make(map[string]string, len(headers))}
	for _, h := range headers {
		key := NormalizeFieldName(h)
		if key == "" {
			continue
		}
		idx.byName[key] = h
	}
	return idx
}

// Resolve returns the actual header matching name.
func (idx AliasIndex) Resolve(name string) (string, bool) {
	h, ok := idx.byName[NormalizeFieldName(name)]
	return h, ok
}

// ResolveAny tries each alias in order and returns the first header found.
func (idx AliasIndex) ResolveAny(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if h, ok := idx.Resolve(a); ok {
			return h, true
		}
	}
	return "", false
}

// Len returns the number of distinct normalized names.
func (idx AliasIndex) Len() int {
	return len(idx.byName)
}
