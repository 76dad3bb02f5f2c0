package references

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// RefType discriminates what a reference token points at.
type RefType string

const (
	RefTypePage   RefType = "page"
	RefTypeSymbol RefType = "symbol"
)

// Reference is one parsed token. References are ephemeral; they are never
// persisted, only resolved against the manuscript tables.
type Reference struct {
	Type RefType `json:"type"`
	ID   int     `json:"id"`
}

// Token renders the canonical bracket form, e.g. {page5} or {symbol9}.
func (r Reference) Token() string {
	return fmt.Sprintf("{%s%d}", r.Type, r.ID)
}

// A token is the literal substring {page<digits>} or {symbol<digits>}.
// There is no escape mechanism, so stray braces that happen to match are
// treated as references.
var tokenPattern = regexp.MustCompile(`\{(page|symbol)(\d+)\}`)

// Extract returns the references found in text in first-occurrence order,
// de-duplicated by (type, id).
func Extract(text string) []Reference {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[Reference]struct{}, len(matches))
	refs := make([]Reference, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		ref := Reference{Type: RefType(match[1]), ID: id}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// Merge appends extra references to refs, keeping first-occurrence order and
// dropping duplicates by (type, id).
func Merge(refs []Reference, extra []Reference) []Reference {
	seen := make(map[Reference]struct{}, len(refs)+len(extra))
	merged := make([]Reference, 0, len(refs)+len(extra))
	for _, ref := range append(append([]Reference{}, refs...), extra...) {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		merged = append(merged, ref)
	}
	return merged
}

// SubstituteAtCursor inserts the canonical token for ref at the given byte
// offset, clamping the offset to the text bounds. An offset landing inside a
// multi-byte rune is rounded down to the rune's start so the rune is never
// split.
func SubstituteAtCursor(text string, ref Reference, cursor int) string {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	for cursor > 0 && cursor < len(text) && !utf8.RuneStart(text[cursor]) {
		cursor--
	}
	return text[:cursor] + ref.Token() + text[cursor:]
}
