package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a fiscal year and season (calendar quarter 1-4).
type Period struct {
	Year   int `json:"year" validate:"gte=1900"`
	Season int `json:"season" validate:"gte=1,lte=4"`
}

// Key encodes the period as Year*10+Season for ordering.
func (p Period) Key() int { return p.Year*10 + p.Season }

// Compare returns -1, 0 or 1.
func (p Period) Compare(o Period) int {
	switch a, b := p.Key(), o.Key(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Next advances one season, wrapping season 4 into season 1 of the next year.
func (p Period) Next() Period {
	if p.Season >= 4 {
		return Period{Year: p.Year + 1, Season: 1}
	}
	return Period{Year: p.Year, Season: p.Season + 1}
}

// FirstDay is the first calendar day of the season.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month((p.Season-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// LastDay is the last calendar day of the season.
func (p Period) LastDay() time.Time {
	return p.FirstDay().AddDate(0, 3, -1)
}

func (p Period) String() string { return fmt.Sprintf("%d-%d", p.Year, p.Season) }

// SeasonOfMonth maps Jan-Mar to 1, Apr-Jun to 2, Jul-Sep to 3 and the rest to 4.
func SeasonOfMonth(m time.Month) int {
	switch {
	case m >= time.January && m <= time.March:
		return 1
	case m >= time.April && m <= time.June:
		return 2
	case m >= time.July && m <= time.September:
		return 3
	default:
		return 4
	}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Season: SeasonOfMonth(t.Month())}
}

// ParsePeriod parses the "Y-S" command line form, e.g. "2021-3".
func ParsePeriod(s string) (Period, error) {
	year, season, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("parse period %q: expected Y-S", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: year: %w", s, err)
	}
	q, err := strconv.Atoi(season)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: season: %w", s, err)
	}
	if q < 1 || q > 4 {
		return Period{}, fmt.Errorf("parse period %q: season must be 1-4", s)
	}
	if y < 1900 {
		return Period{}, fmt.Errorf("parse period %q: year out of range", s)
	}
	return Period{Year: y, Season: q}, nil
}

// PeriodRange is an inclusive range of periods.
type PeriodRange struct {
	Start Period
	End   Period
}

func (r PeriodRange) String() string { return r.Start.String() + ".." + r.End.String() }

// NewPeriodRange validates order.
func NewPeriodRange(start, end Period) (PeriodRange, error) {
	if end.Compare(start) < 0 {
		return PeriodRange{}, fmt.Errorf("period range %s..%s: end before start", start, end)
	}
	return PeriodRange{Start: start, End: end}, nil
}

// Periods enumerates every period in the range, both ends included.
func (r PeriodRange) Periods() []Period {
	var out []Period
	for p := r.Start; p.Compare(r.End) <= 0; p = p.Next() {
		out = append(out, p)
	}
	return out
}

// IncomeStatement holds one season's income statement line items.
// Monetary fields are NT$ thousands; EPS is unscaled.
type IncomeStatement struct {
	Year             int             `json:"year" validate:"gte=1900"`
	Season           int             `json:"season" validate:"gte=1,lte=4"`
	Revenue          int64           `json:"revenue"`
	Cost             int64           `json:"cost"`
	GrossProfit      int64           `json:"gross_profit"`
	OperatingExpense int64           `json:"operating_expense"`
	OperatingIncome  int64           `json:"operating_income"`
	NonOperatingNet  int64           `json:"non_operating_net"`
	IncomeBeforeTax  int64           `json:"income_before_tax"`
	NetIncome        int64           `json:"net_income"`
	EPS              decimal.Decimal `json:"eps"`
}

// Period returns the statement's (year, season) key.
func (s IncomeStatement) Period() Period { return Period{Year: s.Year, Season: s.Season} }
