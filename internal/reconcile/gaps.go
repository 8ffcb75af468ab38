// Package reconcile computes the sub-ranges of a requested window that are
// not yet covered by what the store already holds for a ticker.
package reconcile

import (
	"cmp"
	"errors"
	"slices"
)

// ErrNoBaseline is returned in latest mode when nothing is stored and no
// explicit range was given to fall back to.
var ErrNoBaseline = errors.New("reconcile: latest mode needs stored records or an explicit range")

type span[K cmp.Ordered] struct {
	start, end K
}

// gaps is shared by the date and period variants. Coverage is taken to be
// [min(stored), max(stored)]; the boundary key is re-fetched so that the
// store-side distinct append absorbs it. A nil result means skip.
func gaps[K cmp.Ordered](start, end K, stored []K) []span[K] {
	if len(stored) == 0 {
		return []span[K]{{start, end}}
	}
	first, last := slices.Min(stored), slices.Max(stored)

	switch {
	case end > last:
		if start >= first {
			return []span[K]{{max(start, last), end}}
		}
		// request straddles stored coverage on both sides
		return []span[K]{{start, first}, {last, end}}
	case start < first:
		return []span[K]{{start, min(end, first)}}
	}
	return nil
}
