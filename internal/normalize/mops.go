package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"TWStockHarvester/internal/model"
)

// IFRSAdoptionYear is the first filing year reported under IFRS. Earlier
// filings use ROC GAAP labels and a different MOPS form.
const IFRSAdoptionYear = 2013

// Row is one labelled line of a MOPS income statement table.
type Row struct {
	Label string
	Value string
}

// Labels are stored folded: half-width punctuation, no whitespace.
var legacyLabels = map[string]field{
	"營業收入合計":         fieldRevenue,
	"營業收入淨額":         fieldRevenue,
	"營業成本合計":         fieldCost,
	"營業毛利(毛損)":       fieldGrossProfit,
	"營業費用合計":         fieldOperatingExpense,
	"營業淨利(淨損)":       fieldOperatingIncome,
	"營業外收入及利益合計":     fieldNonOperatingIncome,
	"營業外收入及利益":       fieldNonOperatingIncome,
	"營業外費用及損失合計":     fieldNonOperatingExpense,
	"營業外費用及損失":       fieldNonOperatingExpense,
	"繼續營業單位稅前淨利(淨損)": fieldIncomeBeforeTax,
	"繼續營業部門稅前淨利(淨損)": fieldIncomeBeforeTax,
	"本期淨利(淨損)":       fieldNetIncome,
	"合併總損益":          fieldNetIncome,
	"基本每股盈餘":         fieldEPS,
}

var ifrsLabels = map[string]field{
	"營業收入合計":         fieldRevenue,
	"營業成本合計":         fieldCost,
	"營業毛利(毛損)":       fieldGrossProfit,
	"營業毛利(毛損)淨額":     fieldGrossProfit,
	"營業費用合計":         fieldOperatingExpense,
	"營業利益(損失)":       fieldOperatingIncome,
	"營業外收入及支出合計":     fieldNonOperatingCombined,
	"稅前淨利(淨損)":       fieldIncomeBeforeTax,
	"繼續營業單位稅前淨利(淨損)": fieldIncomeBeforeTax,
	"本期淨利(淨損)":       fieldNetIncome,
	"基本每股盈餘":         fieldEPS,
	"基本每股盈餘合計":       fieldEPS,
}

// labelsFor picks the label table for a filing year.
func labelsFor(year int) map[string]field {
	if year < IFRSAdoptionYear {
		return legacyLabels
	}
	return ifrsLabels
}

// FoldLabel narrows full-width characters and strips whitespace so labels
// from either era compare equal to the table keys.
func FoldLabel(s string) string {
	s = width.Narrow.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// MOPSStatement builds one record from a MOPS table. MOPS amounts are
// already NT$ thousands. Rows without a value and unknown labels are skipped.
func MOPSStatement(p model.Period, rows []Row) (model.IncomeStatement, error) {
	labels := labelsFor(p.Year)
	b := newStatementBuilder(p)
	for _, r := range rows {
		f, ok := labels[FoldLabel(r.Label)]
		if !ok {
			continue
		}
		v, ok, err := parseMOPSNumber(r.Value)
		if err != nil {
			return model.IncomeStatement{}, fmt.Errorf("%s %q: %w", p, r.Label, err)
		}
		if !ok {
			continue
		}
		if f == fieldEPS {
			b.setEPS(v)
			continue
		}
		b.setAmount(f, v.IntPart())
	}
	return b.stmt, nil
}

// parseMOPSNumber handles "1,234", "-1,234" and "(1,234)".
func parseMOPSNumber(raw string) (decimal.Decimal, bool, error) {
	s := strings.ReplaceAll(FoldLabel(raw), ",", "")
	if missing(s) {
		return decimal.Decimal{}, false, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, true, nil
}
