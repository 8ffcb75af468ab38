package normalize

import (
	"github.com/shopspring/decimal"

	"TWStockHarvester/internal/model"
)

type field int

const (
	fieldRevenue field = iota
	fieldCost
	fieldGrossProfit
	fieldOperatingExpense
	fieldOperatingIncome
	fieldNonOperatingCombined
	fieldNonOperatingIncome
	fieldNonOperatingExpense
	fieldIncomeBeforeTax
	fieldNetIncome
	fieldEPS
)

type nonOperatingSource int

const (
	nonOperatingUnset nonOperatingSource = iota
	nonOperatingCombined
	nonOperatingSplit
)

// statementBuilder accumulates line items for one period.
type statementBuilder struct {
	stmt    model.IncomeStatement
	nonOp   nonOperatingSource
	income  int64
	expense int64
}

func newStatementBuilder(p model.Period) *statementBuilder {
	return &statementBuilder{stmt: model.IncomeStatement{Year: p.Year, Season: p.Season}}
}

// setAmount stores an amount already expressed in thousands. Filings report
// non-operating results either as one combined line or as separate income
// and expense lines; the combined line wins and the split lines are then
// ignored, so the two never mix within a record. A repeated split line
// (a heading followed by its total) replaces the earlier value.
func (b *statementBuilder) setAmount(f field, v int64) {
	s := &b.stmt
	switch f {
	case fieldRevenue:
		s.Revenue = v
	case fieldCost:
		s.Cost = v
	case fieldGrossProfit:
		s.GrossProfit = v
	case fieldOperatingExpense:
		s.OperatingExpense = v
	case fieldOperatingIncome:
		s.OperatingIncome = v
	case fieldIncomeBeforeTax:
		s.IncomeBeforeTax = v
	case fieldNetIncome:
		s.NetIncome = v
	case fieldNonOperatingCombined:
		s.NonOperatingNet = v
		b.nonOp = nonOperatingCombined
	case fieldNonOperatingIncome, fieldNonOperatingExpense:
		if b.nonOp == nonOperatingCombined {
			return
		}
		b.nonOp = nonOperatingSplit
		if f == fieldNonOperatingIncome {
			b.income = v
		} else {
			b.expense = v
		}
		s.NonOperatingNet = b.income - b.expense
	}
}

func (b *statementBuilder) setEPS(d decimal.Decimal) { b.stmt.EPS = d }

// Thousands truncates a raw NT$ amount to whole thousands.
func Thousands(v float64) int64 { return int64(v / 1000) }
