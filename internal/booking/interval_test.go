package booking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical", at(0), at(2), at(0), at(2), true},
		{"contained", at(0), at(4), at(1), at(2), true},
		{"partial left", at(0), at(2), at(1), at(3), true},
		{"partial right", at(1), at(3), at(0), at(2), true},
		{"back to back", at(0), at(2), at(2), at(4), false},
		{"back to back reversed", at(2), at(4), at(0), at(2), false},
		{"disjoint", at(0), at(1), at(3), at(4), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "must be symmetric")
		})
	}
}

// Randomized cross-check against a brute-force sweep at minute
// resolution.  All generated bounds fall on whole minutes, so sampling
// minute starts is exact for half-open intervals.
func TestOverlapsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	interval := func() (time.Time, time.Time) {
		s := rng.Intn(600)
		e := s + 1 + rng.Intn(120)
		return base.Add(time.Duration(s) * time.Minute), base.Add(time.Duration(e) * time.Minute)
	}
	bruteForce := func(aS, aE, bS, bE time.Time) bool {
		for m := aS; m.Before(aE); m = m.Add(time.Minute) {
			if !m.Before(bS) && m.Before(bE) {
				return true
			}
		}
		return false
	}

	for i := 0; i < 2000; i++ {
		aS, aE := interval()
		bS, bE := interval()
		require.Equalf(t, bruteForce(aS, aE, bS, bE), Overlaps(aS, aE, bS, bE),
			"a=[%v,%v) b=[%v,%v)", aS, aE, bS, bE)
	}
}

// Feed random intervals through the accept-if-free rule and verify the
// accepted set never contains an overlapping pair.  This is the
// in-memory shape of the availability invariant; the transactional
// variant is exercised in service_test.go.
func TestAcceptedSetNeverOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	type span struct{ s, e time.Time }
	var accepted []span

	for i := 0; i < 500; i++ {
		s := base.Add(time.Duration(rng.Intn(1000)) * time.Minute)
		e := s.Add(time.Duration(1+rng.Intn(180)) * time.Minute)

		free := true
		for _, a := range accepted {
			if Overlaps(a.s, a.e, s, e) {
				free = false
				break
			}
		}
		if free {
			accepted = append(accepted, span{s, e})
		}
	}

	require.Greater(t, len(accepted), 1)
	for i := 0; i < len(accepted); i++ {
		for j := i + 1; j < len(accepted); j++ {
			require.Falsef(t, Overlaps(accepted[i].s, accepted[i].e, accepted[j].s, accepted[j].e),
				"accepted intervals %d and %d overlap", i, j)
		}
	}
}

func TestValidInterval(t *testing.T) {
	now := time.Now()
	assert.True(t, ValidInterval(now, now.Add(time.Hour)))
	assert.False(t, ValidInterval(now, now))
	assert.False(t, ValidInterval(now.Add(time.Hour), now))
}
