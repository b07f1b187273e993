// Package brandkey canonicalizes free-text shop names into the grouping key
// used to cluster name variants of the same business.
package brandkey

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxKeyLength         = 80
	MaxDisplayNameLength = 120
)

var (
	quoteReplacer = strings.NewReplacer(
		"'", "", "\"", "",
		"‘", "", "’", "", "‚", "", "‛", "",
		"“", "", "”", "", "„", "", "‟", "",
		"`", "", "´", "",
	)

	// Store numbering: "#12", "no. 4", "no 4", "number 9". Boundaries are
	// expressed as non-alphanumeric runs so the result does not depend on how
	// punctuation is later collapsed.
	hashNumberRE  = regexp.MustCompile(`#[^\p{L}\p{N}]*[0-9]+([^\p{L}\p{N}]|$)`)
	wordNumberRE  = regexp.MustCompile(`(^|[^\p{L}\p{N}])(?:number|no)[^\p{L}\p{N}]*[0-9]+([^\p{L}\p{N}]|$)`)
	nonAlnumRunRE = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Normalize derives the brand key for a display name. It is pure, total and
// idempotent; blank input yields "".
func Normalize(text string) string {
	out := normalizeOnce(text)
	// Truncation can expose a new store-number token at the tail; every
	// further pass strictly shortens the key, so this converges quickly.
	for i := 0; i < 8; i++ {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(text string) string {
	value := strings.TrimSpace(text)
	if value == "" {
		return ""
	}
	value = strings.ToLower(value)
	value = stripDiacritics(value)
	value = strings.ReplaceAll(value, "&", " and ")
	value = quoteReplacer.Replace(value)
	value = stripStoreNumbers(value)
	value = nonAlnumRunRE.ReplaceAllString(value, " ")
	value = strings.TrimSpace(value)
	value = truncateRunes(value, MaxKeyLength)
	return strings.TrimSpace(value)
}

// DisplayName collapses whitespace and bounds the human-facing label. It is
// never used for matching.
func DisplayName(text string) string {
	value := strings.Join(strings.Fields(text), " ")
	value = truncateRunes(value, MaxDisplayNameLength)
	return strings.TrimSpace(value)
}

func stripDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

func stripStoreNumbers(value string) string {
	for {
		next := hashNumberRE.ReplaceAllString(value, " $1")
		next = wordNumberRE.ReplaceAllString(next, "$1 $2")
		if next == value {
			return next
		}
		value = next
	}
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}
