package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO layout used for every stored calendar date.
// Zero padding keeps lexicographic and chronological order identical.
const DateLayout = "2006-01-02"

// Taipei is the exchange's local time. Calendar dates and "today" are
// read in this zone.
var Taipei = time.FixedZone("CST", 8*60*60)

// DailyBar is one trading day's prices and volume for a ticker.
// Prices carry two decimal places; Volume is expressed in thousands of shares.
type DailyBar struct {
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume" validate:"gte=0"`
}

// Key identifies the bar within a ticker.
func (b DailyBar) Key() string { return b.Date }

// DateRange is an inclusive calendar window of ISO dates.
type DateRange struct {
	Start string
	End   string
}

func (r DateRange) String() string { return r.Start + ".." + r.End }

// ParseDate parses an ISO date string and rejects anything that does not
// round-trip, so "2021-5-1" is refused even though it is unambiguous.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("parse date %q: not zero-padded ISO format", s)
	}
	return t, nil
}

// NewDateRange validates both ends and their order.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("date range %s..%s: end before start", start, end)
	}
	return DateRange{Start: start, End: end}, nil
}
