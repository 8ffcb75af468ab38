package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"TWStockHarvester/internal/model"
)

// FinMindItem is one line of the TaiwanStockFinancialStatements dataset.
type FinMindItem struct {
	Date       string  `json:"date"`
	StockID    string  `json:"stock_id"`
	Type       string  `json:"type"`
	Value      float64 `json:"value"`
	OriginName string  `json:"origin_name"`
}

var finMindFields = map[string]field{
	"Revenue":                                 fieldRevenue,
	"CostOfGoodsSold":                         fieldCost,
	"GrossProfit":                             fieldGrossProfit,
	"OperatingExpenses":                       fieldOperatingExpense,
	"OperatingIncome":                         fieldOperatingIncome,
	"TotalNonoperatingIncomeAndExpense":       fieldNonOperatingCombined,
	"TotalNonbusinessIncome":                  fieldNonOperatingIncome,
	"TotalnonbusinessExpenditure":             fieldNonOperatingExpense,
	"IncomeBeforeTaxFromContinuingOperations": fieldIncomeBeforeTax,
	"IncomeBeforeIncomeTax":                   fieldIncomeBeforeTax,
	"PreTaxIncome":                            fieldIncomeBeforeTax,
	"NetIncome":                               fieldNetIncome,
	"IncomeAfterTaxes":                        fieldNetIncome,
	"EPS":                                     fieldEPS,
}

// FinMindAccumulator folds streamed items into one statement per statement
// date, in first-seen order.
type FinMindAccumulator struct {
	order    []string
	builders map[string]*statementBuilder
}

func NewFinMindAccumulator() *FinMindAccumulator {
	return &FinMindAccumulator{builders: make(map[string]*statementBuilder)}
}

// Add folds one item. Unknown types are ignored; an unparseable date is
// returned as an error and leaves the accumulator untouched.
func (a *FinMindAccumulator) Add(item FinMindItem) error {
	date := strings.TrimSpace(item.Date)
	t, err := model.ParseDate(date)
	if err != nil {
		return fmt.Errorf("finmind item %s: %w", item.Type, err)
	}

	b, ok := a.builders[date]
	if !ok {
		b = newStatementBuilder(model.PeriodOf(t))
		a.builders[date] = b
		a.order = append(a.order, date)
	}

	f, known := finMindFields[item.Type]
	switch {
	case !known:
	case f == fieldEPS:
		b.setEPS(decimal.NewFromFloat(item.Value))
	default:
		b.setAmount(f, Thousands(item.Value))
	}
	return nil
}

// Statements returns the accumulated records.
func (a *FinMindAccumulator) Statements() []model.IncomeStatement {
	out := make([]model.IncomeStatement, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, a.builders[d].stmt)
	}
	return out
}
