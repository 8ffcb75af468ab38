package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/model"
)

func TestPrice_RoundsHalfUp(t *testing.T) {
	cases := map[string]string{
		"12.345":     "12.35",
		"12.344":     "12.34",
		"0.005":      "0.01",
		"598.0":      "598",
		"101.499999": "101.5",
		"2.675":      "2.68",
	}
	for in, want := range cases {
		got, err := Price(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s, want %s", in, got, want)
	}
}

func TestPrice_Missing(t *testing.T) {
	for _, in := range []string{"", "null", "NaN", "abc"} {
		_, err := Price(in)
		assert.Error(t, err, in)
	}
}

func TestVolumeThousands(t *testing.T) {
	cases := map[string]int64{
		"12345678": 12346,
		"2500":     3,
		"2499":     2,
		"999":      1,
		"0":        0,
		"":         0,
		"null":     0,
		"NaN":      0,
		"1.5E6":    1500,
	}
	for in, want := range cases {
		got, err := VolumeThousands(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := VolumeThousands("lots")
	assert.Error(t, err)
}

func TestBar(t *testing.T) {
	bar, err := Bar(RawBar{Date: "2021-05-10", Open: "598.0", Close: "601.005", High: "602.349", Low: "595", Volume: "26104230"})
	require.NoError(t, err)
	assert.Equal(t, "2021-05-10", bar.Date)
	assert.Equal(t, "598", bar.Open.String())
	assert.Equal(t, "601.01", bar.Close.StringFixed(2))
	assert.Equal(t, "602.35", bar.High.StringFixed(2))
	assert.Equal(t, "595.00", bar.Low.StringFixed(2))
	assert.Equal(t, int64(26104), bar.Volume)

	_, err = Bar(RawBar{Date: "2021-05-10", Open: "null", Close: "1", High: "1", Low: "1"})
	assert.Error(t, err)
	_, err = Bar(RawBar{Date: "May 10", Open: "1", Close: "1", High: "1", Low: "1"})
	assert.Error(t, err)
}

func TestFinMindAccumulator_FoldsByDate(t *testing.T) {
	acc := NewFinMindAccumulator()
	items := []FinMindItem{
		{Date: "2021-03-31", Type: "Revenue", Value: 362410000000},
		{Date: "2021-03-31", Type: "CostOfGoodsSold", Value: 174800000000},
		{Date: "2021-03-31", Type: "GrossProfit", Value: 187610000000},
		{Date: "2021-03-31", Type: "OperatingExpenses", Value: 34420000000},
		{Date: "2021-03-31", Type: "OperatingIncome", Value: 149170000000},
		{Date: "2021-03-31", Type: "TotalNonoperatingIncomeAndExpense", Value: 2510000000},
		{Date: "2021-03-31", Type: "PreTaxIncome", Value: 151680000000},
		{Date: "2021-03-31", Type: "IncomeAfterTaxes", Value: 139690000000},
		{Date: "2021-03-31", Type: "EPS", Value: 5.39},
		{Date: "2021-03-31", Type: "SomethingNew", Value: 1},
		{Date: "2021-06-30", Type: "Revenue", Value: 372150000999},
	}
	for _, it := range items {
		require.NoError(t, acc.Add(it))
	}

	got := acc.Statements()
	require.Len(t, got, 2)
	q1 := got[0]
	assert.Equal(t, model.Period{Year: 2021, Season: 1}, q1.Period())
	assert.Equal(t, int64(362410000), q1.Revenue)
	assert.Equal(t, int64(174800000), q1.Cost)
	assert.Equal(t, int64(187610000), q1.GrossProfit)
	assert.Equal(t, int64(34420000), q1.OperatingExpense)
	assert.Equal(t, int64(149170000), q1.OperatingIncome)
	assert.Equal(t, int64(2510000), q1.NonOperatingNet)
	assert.Equal(t, int64(151680000), q1.IncomeBeforeTax)
	assert.Equal(t, int64(139690000), q1.NetIncome)
	assert.Equal(t, "5.39", q1.EPS.String())

	assert.Equal(t, model.Period{Year: 2021, Season: 2}, got[1].Period())
	assert.Equal(t, int64(372150000), got[1].Revenue)
}

func TestFinMindAccumulator_SplitNonOperating(t *testing.T) {
	acc := NewFinMindAccumulator()
	require.NoError(t, acc.Add(FinMindItem{Date: "2012-12-31", Type: "TotalNonbusinessIncome", Value: 5000000}))
	require.NoError(t, acc.Add(FinMindItem{Date: "2012-12-31", Type: "TotalnonbusinessExpenditure", Value: 1500000}))
	got := acc.Statements()
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Season)
	assert.Equal(t, int64(3500), got[0].NonOperatingNet)
}

func TestFinMindAccumulator_CombinedNeverMixesWithSplit(t *testing.T) {
	acc := NewFinMindAccumulator()
	require.NoError(t, acc.Add(FinMindItem{Date: "2013-03-31", Type: "TotalNonbusinessIncome", Value: 9000000}))
	require.NoError(t, acc.Add(FinMindItem{Date: "2013-03-31", Type: "TotalNonoperatingIncomeAndExpense", Value: 2000000}))
	require.NoError(t, acc.Add(FinMindItem{Date: "2013-03-31", Type: "TotalnonbusinessExpenditure", Value: 7000000}))
	assert.Equal(t, int64(2000), acc.Statements()[0].NonOperatingNet)
}

func TestFinMindAccumulator_BadDate(t *testing.T) {
	acc := NewFinMindAccumulator()
	assert.Error(t, acc.Add(FinMindItem{Date: "2021/03/31", Type: "Revenue", Value: 1}))
	assert.Empty(t, acc.Statements())
}

func TestThousandsTruncates(t *testing.T) {
	assert.Equal(t, int64(1), Thousands(1999))
	assert.Equal(t, int64(-1), Thousands(-1999))
}

func TestMOPSStatement_IFRS(t *testing.T) {
	rows := []Row{
		{Label: "營業收入合計", Value: "362,410,422"},
		{Label: "營業成本合計", Value: "174,710,578"},
		{Label: "營業毛利（毛損）", Value: "187,699,844"},
		{Label: "營業費用合計", Value: "34,481,247"},
		{Label: "營業利益（損失）", Value: "149,218,597"},
		{Label: "營業外收入及支出合計", Value: "(1,234)"},
		{Label: "　稅前淨利（淨損）", Value: "151,678,143"},
		{Label: "本期淨利（淨損）", Value: "139,692,840"},
		{Label: "基本每股盈餘", Value: ""},
		{Label: "基本每股盈餘合計", Value: "5.39"},
		{Label: "其他綜合損益", Value: "1"},
	}
	got, err := MOPSStatement(model.Period{Year: 2021, Season: 1}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(362410422), got.Revenue)
	assert.Equal(t, int64(174710578), got.Cost)
	assert.Equal(t, int64(187699844), got.GrossProfit)
	assert.Equal(t, int64(34481247), got.OperatingExpense)
	assert.Equal(t, int64(149218597), got.OperatingIncome)
	assert.Equal(t, int64(-1234), got.NonOperatingNet)
	assert.Equal(t, int64(151678143), got.IncomeBeforeTax)
	assert.Equal(t, int64(139692840), got.NetIncome)
	assert.Equal(t, "5.39", got.EPS.String())
}

func TestMOPSStatement_LegacyLabelsBeforeIFRS(t *testing.T) {
	rows := []Row{
		{Label: "營業收入淨額", Value: "1,000"},
		{Label: "營業淨利（淨損）", Value: "300"},
		{Label: "營業外收入及利益", Value: "50"},
		{Label: "營業外費用及損失", Value: "20"},
		{Label: "營業外收入及支出合計", Value: "999"},
		{Label: "基本每股盈餘", Value: "1.23"},
	}
	got, err := MOPSStatement(model.Period{Year: 2012, Season: 4}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Revenue)
	assert.Equal(t, int64(300), got.OperatingIncome)
	// IFRS combined label is not part of the legacy table
	assert.Equal(t, int64(30), got.NonOperatingNet)
	assert.Equal(t, "1.23", got.EPS.String())

	// legacy operating income label is unknown to the IFRS table
	got, err = MOPSStatement(model.Period{Year: 2013, Season: 1}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.OperatingIncome)
	assert.Equal(t, int64(999), got.NonOperatingNet)
}

func TestMOPSStatement_LegacyHeadingAndTotal(t *testing.T) {
	rows := []Row{
		{Label: "營業外收入及利益", Value: "5,000"},
		{Label: "營業外收入及利益合計", Value: "5,000"},
		{Label: "營業外費用及損失", Value: "2,000"},
		{Label: "營業外費用及損失合計", Value: "2,000"},
	}
	got, err := MOPSStatement(model.Period{Year: 2010, Season: 2}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.NonOperatingNet)
}

func TestMOPSStatement_BadNumber(t *testing.T) {
	_, err := MOPSStatement(model.Period{Year: 2021, Season: 1}, []Row{{Label: "營業收入合計", Value: "n/a"}})
	assert.Error(t, err)
}

func TestFoldLabel(t *testing.T) {
	assert.Equal(t, "營業毛利(毛損)", FoldLabel(" 營業毛利（毛損） "))
	assert.Equal(t, "基本每股盈餘", FoldLabel("基本每股盈餘　"))
}
