package resolve

import (
	"unicode/utf8"

	"github.com/wanderplan/places-cli/internal/normalize"
)

// CatalogIndex is the in-memory index of previously accepted candidates.
// It is created empty, grows monotonically as unique records are accepted and
// never shrinks except on Reset. It is not safe for concurrent use; the
// Resolver serializes access to it.
type CatalogIndex struct {
	accepted   []normalize.Candidate
	byID       map[string]int
	byIdentity map[string]string
	byAddress  map[string][]string
	byInitial  map[rune][]string
}

// NewCatalogIndex returns an empty index.
func NewCatalogIndex() *CatalogIndex {
	idx := &CatalogIndex{}
	idx.Reset()
	return idx
}

// Add indexes an accepted candidate under its identity key, its name-initial
// bucket and, when present, its address hash.
func (idx *CatalogIndex) Add(c normalize.Candidate) {
	idx.byID[c.ID] = len(idx.accepted)
	idx.accepted = append(idx.accepted, c)

	if _, ok := idx.byIdentity[c.IdentityKey]; !ok {
		idx.byIdentity[c.IdentityKey] = c.ID
	}
	if c.NormalizedName != "" {
		initial, _ := utf8.DecodeRuneInString(c.NormalizedName)
		idx.byInitial[initial] = append(idx.byInitial[initial], c.ID)
	}
	if c.AddressHash != "" {
		idx.byAddress[c.AddressHash] = append(idx.byAddress[c.AddressHash], c.ID)
	}
}

// ByIdentity returns the representative id for an identity key.
func (idx *CatalogIndex) ByIdentity(key string) (string, bool) {
	id, ok := idx.byIdentity[key]
	return id, ok
}

// ByInitial returns the ids of candidates whose normalized name starts with
// the same rune as name, in insertion order.
func (idx *CatalogIndex) ByInitial(name string) []string {
	if name == "" {
		return nil
	}
	initial, _ := utf8.DecodeRuneInString(name)
	return idx.byInitial[initial]
}

// ByAddressHash returns the ids of candidates sharing an address hash, in
// insertion order.
func (idx *CatalogIndex) ByAddressHash(hash string) []string {
	return idx.byAddress[hash]
}

// Candidate looks up an accepted candidate by id.
func (idx *CatalogIndex) Candidate(id string) (normalize.Candidate, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return normalize.Candidate{}, false
	}
	return idx.accepted[pos], true
}

// All returns the accepted candidates in insertion order. Callers must not
// mutate the returned slice.
func (idx *CatalogIndex) All() []normalize.Candidate {
	return idx.accepted
}

// Len is the number of accepted candidates.
func (idx *CatalogIndex) Len() int {
	return len(idx.accepted)
}

// Reset clears all index state.
func (idx *CatalogIndex) Reset() {
	idx.accepted = nil
	idx.byID = make(map[string]int)
	idx.byIdentity = make(map[string]string)
	idx.byAddress = make(map[string][]string)
	idx.byInitial = make(map[rune][]string)
}
