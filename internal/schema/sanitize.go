// Package schema turns raw spreadsheet headers and cell text into a typed,
// database-safe column plan.
//
// It is responsible for:
//   - Sanitizing column labels into safe identifiers (or dropping placeholders)
//   - Inferring a closed type category per column from its values
//   - Reconciling the inferred columns against an existing destination table
//
// All of it is pure: no I/O, no database handles, deterministic for
// identical input.
package schema

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sheetload/internal/storage"
)

// Header maps a raw source label to its sanitized destination name.
// Drop means the column is removed from the dataset entirely.
type Header struct {
	Source string
	Name   string
	Drop   bool
}

// placeholderPrefix marks auto-generated spreadsheet columns
// (e.g. "Unnamed: 0" emitted for blank header cells).
const placeholderPrefix = "unnamed"

// asciiFold strips combining marks so accented labels survive the ASCII
// filter below ("Región" -> "region" instead of "regin").
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeName converts an arbitrary column label into a safe, lowercase
// identifier, or reports that the column should be dropped.
//
// Rules:
//   - labels with a case-insensitive "unnamed" prefix are dropped
//   - diacritics are folded, everything is lowercased
//   - runs of whitespace/punctuation collapse to a single underscore
//   - leading/trailing underscores are trimmed
//   - a leading digit gets a "c_" prefix so the result is a valid identifier
//   - an empty result is a drop, never an error
//
// Sanitizing an already-sanitized name is a no-op.
func SanitizeName(label string) (string, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return "", true
	}
	if strings.HasPrefix(strings.ToLower(s), placeholderPrefix) {
		return "", true
	}

	out := sanitizeIdent(s)
	if out == "" {
		return "", true
	}
	return out, false
}

// SanitizeTableName sanitizes a table name (typically a file base name).
// Unlike column labels there is no placeholder rule; an empty result is
// simply returned as "" for the caller to reject.
func SanitizeTableName(name string) string {
	return sanitizeIdent(strings.TrimSpace(name))
}

func sanitizeIdent(s string) string {
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		// Whitespace, punctuation, and anything non-ASCII left after folding
		// all collapse into a single underscore.
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "c_" + out
	}
	return out
}

// SanitizeHeaders sanitizes every label and resolves post-sanitization
// collisions deterministically: the first occurrence keeps the bare name,
// later ones get "_2", "_3", ... suffixes. The system columns id and
// created_at are treated as already taken, so a source column named "id"
// becomes "id_2" rather than colliding with the primary key.
func SanitizeHeaders(labels []string) []Header {
	taken := map[string]bool{
		storage.IDColumn:        true,
		storage.CreatedAtColumn: true,
	}

	out := make([]Header, len(labels))
	for i, label := range labels {
		name, drop := SanitizeName(label)
		if drop {
			out[i] = Header{Source: label, Drop: true}
			continue
		}
		if taken[name] {
			base := name
			for n := 2; ; n++ {
				name = base + "_" + strconv.Itoa(n)
				if !taken[name] {
					break
				}
			}
		}
		taken[name] = true
		out[i] = Header{Source: label, Name: name}
	}
	return out
}
