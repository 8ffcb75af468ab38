package model

// Stock is the per-ticker aggregate persisted in the store. Records are kept
// in insertion order; each list holds at most one record per key.
type Stock struct {
	Ticker           string            `json:"ticker" validate:"required"`
	Name             string            `json:"name"`
	Sector           string            `json:"sector"`
	Market           Market            `json:"market"`
	DailyBars        []DailyBar        `json:"daily_bars"`
	IncomeStatements []IncomeStatement `json:"income_statements"`
}

// NewStock starts an empty aggregate for a listing entry.
func NewStock(e ListingEntry) *Stock {
	return &Stock{Ticker: e.Ticker, Name: e.Name, Sector: e.Sector, Market: e.Market}
}

// BarDates lists the stored bar dates in insertion order.
func (s *Stock) BarDates() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.DailyBars))
	for i, b := range s.DailyBars {
		out[i] = b.Date
	}
	return out
}

// StatementPeriods lists the stored statement periods in insertion order.
func (s *Stock) StatementPeriods() []Period {
	if s == nil {
		return nil
	}
	out := make([]Period, len(s.IncomeStatements))
	for i, st := range s.IncomeStatements {
		out[i] = st.Period()
	}
	return out
}

// MergeDailyBars appends bars whose date is not yet present and returns how
// many were added. Duplicates inside bars are collapsed to the first one.
func (s *Stock) MergeDailyBars(bars []DailyBar) int {
	seen := make(map[string]struct{}, len(s.DailyBars)+len(bars))
	for _, b := range s.DailyBars {
		seen[b.Key()] = struct{}{}
	}
	added := 0
	for _, b := range bars {
		if _, ok := seen[b.Key()]; ok {
			continue
		}
		seen[b.Key()] = struct{}{}
		s.DailyBars = append(s.DailyBars, b)
		added++
	}
	return added
}

// MergeIncomeStatements is MergeDailyBars for statements keyed by period.
func (s *Stock) MergeIncomeStatements(stmts []IncomeStatement) int {
	seen := make(map[int]struct{}, len(s.IncomeStatements)+len(stmts))
	for _, st := range s.IncomeStatements {
		seen[st.Period().Key()] = struct{}{}
	}
	added := 0
	for _, st := range stmts {
		k := st.Period().Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.IncomeStatements = append(s.IncomeStatements, st)
		added++
	}
	return added
}
