package resolve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/places-cli/internal/model"
	"github.com/wanderplan/places-cli/internal/normalize"
)

func cand(rec model.RawRecord) normalize.Candidate {
	return normalize.NewCandidate(rec)
}

func TestResolve_FirstRecordUnique(t *testing.T) {
	r := New(DefaultConfig(), nil)
	m := r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Grand Palace", City: "bangkok"}))
	assert.Nil(t, m)
	assert.Equal(t, 1, r.Accepted())
}

func TestResolve_IdenticalRecordIsIdentityMatch(t *testing.T) {
	r := New(DefaultConfig(), nil)
	rec := model.RawRecord{ID: "p1", Name: "Grand Palace", City: "bangkok", Domain: "timeout.com"}
	require.Nil(t, r.Resolve(cand(rec)))

	rec.ID = "p2"
	m := r.Resolve(cand(rec))
	require.NotNil(t, m)
	assert.Equal(t, "p1", m.ID)
	assert.Equal(t, model.MatchIdentity, m.Strategy)
	assert.Equal(t, 1, r.Accepted(), "duplicate must not enter the index")
}

func TestResolve_IdentityBeatsFuzzy(t *testing.T) {
	// Identical normalized names resolve through the identity key, never
	// through the fuzzy scan.
	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Wat Pho", City: "bangkok"})))

	m := r.Resolve(cand(model.RawRecord{ID: "p2", Name: "The Wat Pho", City: "bangkok"}))
	require.NotNil(t, m)
	assert.Equal(t, model.MatchIdentity, m.Strategy)
}

func TestResolve_FuzzyThresholdBoundary(t *testing.T) {
	// A stub similarity pins the ratio exactly at and just under the
	// threshold.
	for _, tc := range []struct {
		ratio float64
		dup   bool
	}{
		{86, true},
		{85.9, false},
		{95, true},
	} {
		sim := func(a, b string) float64 { return tc.ratio }
		r := New(DefaultConfig(), sim)
		require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Chatuchak Market", City: "bangkok"})))

		m := r.Resolve(cand(model.RawRecord{ID: "p2", Name: "Chatuchak Weekend", City: "chiangmai"}))
		if tc.dup {
			require.NotNil(t, m, "ratio %.1f", tc.ratio)
			assert.Equal(t, model.MatchFuzzyName, m.Strategy)
			assert.Equal(t, "p1", m.ID)
		} else {
			assert.Nil(t, m, "ratio %.1f", tc.ratio)
		}
	}
}

func TestResolve_FuzzyRealSimilarity(t *testing.T) {
	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Chatuchak Weekend Bazaar", City: "bangkok"})))

	// One letter off, same initial bucket.
	m := r.Resolve(cand(model.RawRecord{ID: "p2", Name: "Chatuchak Weekend Bazzar", City: "chiangmai"}))
	require.NotNil(t, m)
	assert.Equal(t, model.MatchFuzzyName, m.Strategy)
}

func TestResolve_FuzzySkipsOtherInitialBuckets(t *testing.T) {
	calls := 0
	sim := func(a, b string) float64 { calls++; return 0 }
	r := New(DefaultConfig(), sim)
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Alpha", City: "a"})))
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p2", Name: "Beta", City: "b"})))
	assert.Zero(t, calls, "different initials must not be compared")
}

func TestResolve_AddressMatchIgnoresName(t *testing.T) {
	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(cand(model.RawRecord{
		ID: "p1", Name: "Blue Elephant", City: "bangkok", Address: "233 South Sathorn Rd",
	})))

	m := r.Resolve(cand(model.RawRecord{
		ID: "p2", Name: "Completely Different Venue", City: "chiangmai", Address: "233 South Sathorn Rd",
	}))
	require.NotNil(t, m)
	assert.Equal(t, "p1", m.ID)
	assert.Equal(t, model.MatchAddress, m.Strategy)
}

func TestResolve_AddressHashHitNeedsSimilarity(t *testing.T) {
	// The hash only fires on identical normalized addresses, so force the
	// double check to fail with a stub.
	sim := func(a, b string) float64 { return 0 }
	r := New(DefaultConfig(), sim)
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Aaa", Address: "99 Rama IV"})))

	m := r.Resolve(cand(model.RawRecord{ID: "p2", Name: "Bbb", Address: "99 Rama IV"}))
	assert.Nil(t, m)
}

func TestResolve_GeoToleranceBoundary(t *testing.T) {
	mk := func(id string, lat, lng float64) normalize.Candidate {
		return cand(model.RawRecord{ID: id, Name: "N" + id, Lat: &lat, Lng: &lng})
	}

	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(mk("p1", 13.7563, 100.5018)))

	// Inside the tolerance.
	m := r.Resolve(mk("p2", 13.7563, 100.5018+0.0009))
	require.NotNil(t, m)
	assert.Equal(t, model.MatchGeo, m.Strategy)
	assert.Equal(t, "p1", m.ID)

	// Outside the tolerance.
	m = r.Resolve(mk("p3", 13.7563, 100.5018+0.0011))
	assert.Nil(t, m)
}

func TestResolve_GeoPicksClosest(t *testing.T) {
	mk := func(id, name string, lat, lng float64) normalize.Candidate {
		return cand(model.RawRecord{ID: id, Name: name, Lat: &lat, Lng: &lng})
	}

	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(mk("far", "Aone", 13.7563, 100.5018)))
	require.Nil(t, r.Resolve(mk("near", "Btwo", 13.7563, 100.5038)))

	m := r.Resolve(mk("probe", "Cthree", 13.7563, 100.5039))
	require.NotNil(t, m)
	assert.Equal(t, "near", m.ID)
}

func TestResolve_MissingGeoNeverGeoMatches(t *testing.T) {
	lat, lng := 13.7563, 100.5018
	r := New(DefaultConfig(), nil)
	require.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p1", Name: "Aone", Lat: &lat, Lng: &lng})))
	assert.Nil(t, r.Resolve(cand(model.RawRecord{ID: "p2", Name: "Btwo"})))
}

func TestResolve_StatsAndReset(t *testing.T) {
	r := New(DefaultConfig(), nil)
	rec := model.RawRecord{ID: "p1", Name: "Grand Palace", City: "bangkok"}
	require.Nil(t, r.Resolve(cand(rec)))
	rec.ID = "p2"
	require.NotNil(t, r.Resolve(cand(rec)))

	assert.Equal(t, map[model.MatchStrategy]int{model.MatchIdentity: 1}, r.Stats())

	r.Reset()
	assert.Equal(t, 0, r.Accepted())
	assert.Empty(t, r.Stats())
	assert.Nil(t, r.Resolve(cand(rec)), "reset index accepts previously seen records")
}

func TestResolve_ManyUniqueRecords(t *testing.T) {
	names := []string{
		"Grand Palace", "Wat Arun", "Jim Thompson House", "Lumphini Park",
		"Chatuchak Weekend Bazaar", "Khao San Quarter", "Asiatique Riverfront",
		"Erawan Shrine", "Siam Paragon", "Terminal 21",
	}
	r := New(DefaultConfig(), nil)
	for i, name := range names {
		rec := model.RawRecord{ID: fmt.Sprintf("p%d", i), Name: name, City: "bangkok"}
		assert.Nil(t, r.Resolve(cand(rec)), name)
	}
	assert.Equal(t, len(names), r.Accepted())
}
