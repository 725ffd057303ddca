package valueobject

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxSKULength is the longest SKU accepted after normalisation
const MaxSKULength = 64

// NormalizeSKU folds a SKU into its canonical form: NFKC, trimmed, upper case,
// inner whitespace collapsed to single dashes. Two SKUs are the same SKU for
// uniqueness purposes iff their normalised forms are equal.
func NormalizeSKU(raw string) string {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = cases.Upper(language.Und).String(s)
	return strings.Join(strings.Fields(s), "-")
}
