// Package normalize turns raw scraped records into comparable candidates:
// normalized names and addresses, a deterministic identity key, and an
// address hash used by the duplicate resolver.
package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wanderplan/places-cli/internal/model"
)

// fillerPrefixes are low-signal leading words stripped from names.
var fillerPrefixes = []string{
	"the ", "a ", "an ", "best ", "top ", "famous ", "popular ",
	"amazing ", "incredible ", "fantastic ", "excellent ",
}

// venueSuffixes are trailing venue-type words stripped from names.
var venueSuffixes = []string{
	" restaurant", " cafe", " bar", " club", " shop", " store",
	" market", " mall", " hotel", " resort", " spa", " museum",
}

// addressStopWords are city, country and generic street tokens that carry no
// uniqueness signal within a single catalog.
var addressStopWords = []string{
	"bangkok", "thailand", "thai", "street", "road", "soi", "lane",
	"building", "floor", "room", "suite", "tower", "plaza", "center",
}

var (
	multiSpaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

	// Strips combining marks after NFD decomposition.
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// fold lowercases and strips diacritics so "Café" and "cafe" compare equal.
func fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Name normalizes a venue or event name for comparison: lowercase with
// diacritics folded, leading filler words and trailing venue-type words
// removed, whitespace collapsed. Each list is walked in order, so stacked
// fillers like "The Best" are stripped in a single pass.
func Name(name string) string {
	n := fold(strings.TrimSpace(name))
	if n == "" {
		return ""
	}

	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(n, prefix) {
			n = n[len(prefix):]
		}
	}
	for _, suffix := range venueSuffixes {
		if strings.HasSuffix(n, suffix) {
			n = n[:len(n)-len(suffix)]
		}
	}

	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(n, " "))
}

// Address normalizes a street address: lowercase, stop words removed,
// punctuation stripped, whitespace collapsed.
func Address(address string) string {
	a := fold(address)
	if a == "" {
		return ""
	}

	for _, word := range addressStopWords {
		a = removeWord(a, word)
	}

	a = punctRe.ReplaceAllString(a, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(a, " "))
}

// removeWord deletes whole-word occurrences of word from s.
func removeWord(s, word string) string {
	var b strings.Builder
	for start := 0; start < len(s); {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			b.WriteString(s[start:])
			break
		}
		abs := start + idx
		end := abs + len(word)
		leftOK := abs == 0 || !isWordByte(s[abs-1])
		rightOK := end == len(s) || !isWordByte(s[end])
		if leftOK && rightOK {
			b.WriteString(s[start:abs])
			start = end
		} else {
			b.WriteString(s[start : abs+1])
			start = abs + 1
		}
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Candidate is an immutable, comparable projection of a RawRecord.
type Candidate struct {
	ID     string
	Name   string
	City   string
	Domain string
	URL    string

	Address string
	Lat     *float64
	Lng     *float64

	NormalizedName    string
	NormalizedAddress string
	IdentityKey       string
	AddressHash       string
}

// NewCandidate computes the comparable view of a record. It never fails:
// missing fields normalize to empty strings and non-finite coordinates are
// treated as absent geo data.
func NewCandidate(rec model.RawRecord) Candidate {
	c := Candidate{
		ID:      rec.ID,
		Name:    rec.Name,
		City:    rec.City,
		Domain:  rec.Domain,
		URL:     rec.URL,
		Address: rec.Address,
		Lat:     finiteOrNil(rec.Lat),
		Lng:     finiteOrNil(rec.Lng),
	}

	c.NormalizedName = Name(rec.Name)
	c.NormalizedAddress = Address(rec.Address)
	c.IdentityKey = identityKey(c)
	if c.NormalizedAddress != "" {
		c.AddressHash = hashKey(c.NormalizedAddress)
	}
	return c
}

// HasGeo reports whether both coordinates are present and finite.
func (c Candidate) HasGeo() bool {
	return c.Lat != nil && c.Lng != nil
}

// identityKey hashes normalizedName|city|domain plus 3-decimal rounded
// coordinates when both are present. Empty components are dropped, so two
// records differing only in a missing field still collide when the rest
// agrees.
func identityKey(c Candidate) string {
	components := []string{
		c.NormalizedName,
		strings.ToLower(c.City),
		strings.ToLower(c.Domain),
	}
	if c.HasGeo() {
		components = append(components,
			roundCoord(*c.Lat),
			roundCoord(*c.Lng),
		)
	}

	nonEmpty := components[:0]
	for _, part := range components {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return hashKey(strings.Join(nonEmpty, "|"))
}

func roundCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', 3, 64)
}

func hashKey(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
