package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonOfMonth_AllMonths(t *testing.T) {
	want := map[time.Month]int{
		time.January: 1, time.February: 1, time.March: 1,
		time.April: 2, time.May: 2, time.June: 2,
		time.July: 3, time.August: 3, time.September: 3,
		time.October: 4, time.November: 4, time.December: 4,
	}
	for m, s := range want {
		assert.Equal(t, s, SeasonOfMonth(m), "month %s", m)
	}
}

func TestPeriod_NextWrapsSeason(t *testing.T) {
	assert.Equal(t, Period{Year: 2021, Season: 2}, Period{Year: 2021, Season: 1}.Next())
	assert.Equal(t, Period{Year: 2022, Season: 1}, Period{Year: 2021, Season: 4}.Next())
}

func TestPeriod_KeyIsNumeric(t *testing.T) {
	a := Period{Year: 999, Season: 4}
	b := Period{Year: 2021, Season: 1}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 20211, b.Key())
}

func TestPeriod_Days(t *testing.T) {
	p := Period{Year: 2021, Season: 1}
	assert.Equal(t, "2021-01-01", p.FirstDay().Format(DateLayout))
	assert.Equal(t, "2021-03-31", p.LastDay().Format(DateLayout))
	q4 := Period{Year: 2020, Season: 4}
	assert.Equal(t, "2020-12-31", q4.LastDay().Format(DateLayout))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2021-3")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2021, Season: 3}, p)

	for _, bad := range []string{"2021", "2021-5", "abc-1", "2021-x", "12-1"} {
		_, err := ParsePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestPeriodRange_Periods(t *testing.T) {
	r, err := NewPeriodRange(Period{2020, 3}, Period{2021, 2})
	require.NoError(t, err)
	assert.Equal(t, []Period{{2020, 3}, {2020, 4}, {2021, 1}, {2021, 2}}, r.Periods())

	_, err = NewPeriodRange(Period{2021, 2}, Period{2020, 3})
	assert.Error(t, err)
}

func TestNewDateRange(t *testing.T) {
	r, err := NewDateRange("2021-05-01", "2021-05-20")
	require.NoError(t, err)
	assert.Equal(t, "2021-05-01..2021-05-20", r.String())

	_, err = NewDateRange("2021-5-1", "2021-05-20")
	assert.Error(t, err)
	_, err = NewDateRange("2021-05-20", "2021-05-01")
	assert.Error(t, err)
}

func TestNewListing_OTCOverridesAndSorts(t *testing.T) {
	primary := []ListingEntry{
		{Ticker: "2330", Name: "台積電", Market: MarketPrimary},
		{Ticker: "1101", Name: "台泥", Market: MarketPrimary},
		{Ticker: "6488", Name: "old", Market: MarketPrimary},
	}
	otc := []ListingEntry{
		{Ticker: "6488", Name: "環球晶", Market: MarketOTC},
		{Ticker: "3105", Name: "穩懋", Market: MarketOTC},
	}
	l := NewListing(primary, otc)
	require.Equal(t, 4, l.Len())

	var tickers []string
	for _, e := range l.Entries() {
		tickers = append(tickers, e.Ticker)
	}
	assert.Equal(t, []string{"1101", "2330", "3105", "6488"}, tickers)

	e, ok := l.Lookup("6488")
	require.True(t, ok)
	assert.Equal(t, MarketOTC, e.Market)
	assert.Equal(t, "環球晶", e.Name)
}

func TestListing_EntriesIsACopy(t *testing.T) {
	l := NewListing([]ListingEntry{{Ticker: "2330", Market: MarketPrimary}}, nil)
	entries := l.Entries()
	entries[0].Ticker = "9999"
	_, ok := l.Lookup("2330")
	assert.True(t, ok)
	assert.Equal(t, "2330", l.Entries()[0].Ticker)
}

func TestListing_Filter(t *testing.T) {
	l := NewListing([]ListingEntry{{Ticker: "2330"}, {Ticker: "2317"}, {Ticker: "1101"}}, nil)
	f, missing := l.Filter([]string{"2330", "0000", "1101"})
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"0000"}, missing)
}

func TestStock_MergeDailyBarsSkipsKnownDates(t *testing.T) {
	s := &Stock{Ticker: "2330"}
	bar := func(d string) DailyBar { return DailyBar{Date: d, Open: decimal.NewFromInt(1)} }
	assert.Equal(t, 2, s.MergeDailyBars([]DailyBar{bar("2021-05-10"), bar("2021-05-11")}))
	assert.Equal(t, 1, s.MergeDailyBars([]DailyBar{bar("2021-05-11"), bar("2021-05-12"), bar("2021-05-12")}))
	assert.Equal(t, []string{"2021-05-10", "2021-05-11", "2021-05-12"}, s.BarDates())
}

func TestStock_MergeIncomeStatements(t *testing.T) {
	s := &Stock{Ticker: "2330"}
	assert.Equal(t, 2, s.MergeIncomeStatements([]IncomeStatement{{Year: 2021, Season: 1}, {Year: 2021, Season: 2}}))
	assert.Equal(t, 0, s.MergeIncomeStatements([]IncomeStatement{{Year: 2021, Season: 2, Revenue: 9}}))
	assert.Equal(t, []Period{{2021, 1}, {2021, 2}}, s.StatementPeriods())
	assert.Equal(t, int64(0), s.IncomeStatements[1].Revenue)
}

func TestValidBars_DropsBadRecords(t *testing.T) {
	good := DailyBar{Date: "2021-05-10", High: decimal.NewFromInt(10), Low: decimal.NewFromInt(9)}
	badDate := DailyBar{Date: "10/05/2021"}
	inverted := DailyBar{Date: "2021-05-11", High: decimal.NewFromInt(1), Low: decimal.NewFromInt(2)}
	out, rejected := ValidBars([]DailyBar{good, badDate, inverted})
	assert.Equal(t, []DailyBar{good}, out)
	require.Len(t, rejected, 2)
	assert.Equal(t, "10/05/2021", rejected[0].Key)
}

func TestValidStatements(t *testing.T) {
	out, rejected := ValidStatements([]IncomeStatement{{Year: 2021, Season: 1}, {Year: 2021, Season: 7}})
	assert.Len(t, out, 1)
	assert.Len(t, rejected, 1)
}
