package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/normalize"
)

const (
	// DefaultFinMindBaseURL is the FinMind v4 data endpoint.
	DefaultFinMindBaseURL = "https://api.finmindtrade.com/api/v4/data"

	finMindDataset = "TaiwanStockFinancialStatements"

	// finMindQuotaStatus is FinMind's "request limit reached" status.
	finMindQuotaStatus = 402
)

// FinMindFetcher implements StatementFetcher with one API call per range.
type FinMindFetcher struct {
	opts  options
	token string
}

// NewFinMindFetcher creates a FinMind client. The token is passed through
// in the query string as the API expects.
func NewFinMindFetcher(token string, opts ...Option) *FinMindFetcher {
	return &FinMindFetcher{opts: applyOptions(DefaultFinMindBaseURL, opts), token: token}
}

func (f *FinMindFetcher) Name() string { return "finmind" }

// finMindResponse is the dataset envelope.
type finMindResponse struct {
	Msg    string                  `json:"msg"`
	Status int                     `json:"status"`
	Data   []normalize.FinMindItem `json:"data"`
}

// FetchIncomeStatements requests every statement dated inside the range and
// folds the streamed line items into one record per season.
func (f *FinMindFetcher) FetchIncomeStatements(ctx context.Context, e model.ListingEntry, r model.PeriodRange) ([]model.IncomeStatement, error) {
	q := url.Values{}
	q.Set("dataset", finMindDataset)
	q.Set("data_id", e.Ticker)
	q.Set("start_date", r.Start.FirstDay().Format(model.DateLayout))
	q.Set("end_date", r.End.LastDay().Format(model.DateLayout))
	if f.token != "" {
		q.Set("token", f.token)
	}

	req, err := newRequest(ctx, http.MethodGet, f.opts.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	f.opts.logger.Debug().Str("ticker", e.Ticker).Str("range", r.String()).Msg("FinMind API request")

	resp, body, err := do(f.opts.client, req)
	if err != nil {
		return nil, fmt.Errorf("finmind fetch: %w", err)
	}

	var payload finMindResponse
	decodeErr := json.Unmarshal(body, &payload)
	if payload.Status == finMindQuotaStatus || resp.StatusCode == finMindQuotaStatus {
		return nil, &RateLimitError{Source: f.Name(), Message: payload.Msg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Endpoint: finMindDataset, Message: truncate(body, 200)}
	}
	if decodeErr != nil {
		return nil, &ValidationError{Source: f.Name(), Ticker: e.Ticker, Err: decodeErr}
	}
	if payload.Status != 0 && payload.Status != http.StatusOK {
		return nil, &APIError{Source: f.Name(), StatusCode: payload.Status, Endpoint: finMindDataset, Message: payload.Msg}
	}

	acc := normalize.NewFinMindAccumulator()
	for _, item := range payload.Data {
		if item.StockID != "" && item.StockID != e.Ticker {
			continue
		}
		if err := acc.Add(item); err != nil {
			f.opts.logger.Warn().Err(err).Str("ticker", e.Ticker).Msg("Skipping FinMind item")
		}
	}

	var stmts []model.IncomeStatement
	for _, s := range acc.Statements() {
		p := s.Period()
		if p.Compare(r.Start) < 0 || p.Compare(r.End) > 0 {
			continue
		}
		stmts = append(stmts, s)
	}
	return validStatements(f.opts.logger, f.Name(), e.Ticker, stmts), nil
}
