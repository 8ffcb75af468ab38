package model

import "sort"

// Market identifies the exchange board a ticker trades on.
type Market string

const (
	MarketPrimary Market = "PRIMARY"
	MarketOTC     Market = "OTC"
)

// ListingEntry is one listed common stock.
type ListingEntry struct {
	Ticker string `json:"ticker" validate:"required"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
	Market Market `json:"market" validate:"oneof=PRIMARY OTC"`
}

// Listing is the immutable, ticker-ordered set of instruments for one run.
type Listing struct {
	entries []ListingEntry
	index   map[string]int
}

// NewListing merges the two boards. OTC entries replace primary entries
// sharing the same ticker. The result is sorted by ticker code.
func NewListing(primary, otc []ListingEntry) *Listing {
	merged := make(map[string]ListingEntry, len(primary)+len(otc))
	for _, e := range primary {
		merged[e.Ticker] = e
	}
	for _, e := range otc {
		merged[e.Ticker] = e
	}

	entries := make([]ListingEntry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ticker < entries[j].Ticker })

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Ticker] = i
	}
	return &Listing{entries: entries, index: index}
}

// Entries returns a copy of the ordered entries.
func (l *Listing) Entries() []ListingEntry {
	out := make([]ListingEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lookup finds a ticker.
func (l *Listing) Lookup(ticker string) (ListingEntry, bool) {
	i, ok := l.index[ticker]
	if !ok {
		return ListingEntry{}, false
	}
	return l.entries[i], true
}

func (l *Listing) Len() int { return len(l.entries) }

// Filter returns a listing restricted to the given tickers, keeping order.
// Unknown tickers are reported back to the caller.
func (l *Listing) Filter(tickers []string) (*Listing, []string) {
	if len(tickers) == 0 {
		return l, nil
	}
	var keep []ListingEntry
	var missing []string
	for _, t := range tickers {
		e, ok := l.Lookup(t)
		if !ok {
			missing = append(missing, t)
			continue
		}
		keep = append(keep, e)
	}
	return NewListing(keep, nil), missing
}
