package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ArtistKey derives the stable artist id from a display name: diacritics are
// stripped, letters lowercased, and runs of anything that is not a letter or
// digit collapse to a single "-".
//
//	ArtistKey("Beyoncé")             == "beyonce"
//	ArtistKey("AC/DC")               == "ac-dc"
//	ArtistKey(" Tyler, The Creator") == "tyler-the-creator"
func ArtistKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
