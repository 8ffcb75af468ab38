package collector

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/normalize"
)

// DefaultYahooBaseURL is the Yahoo Finance CSV download endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com/v7/finance/download"


// YahooFetcher implements BarFetcher using Yahoo Finance history downloads.
type YahooFetcher struct {
	opts  options
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. crumb may be empty.
func NewYahooFetcher(crumb string, opts ...Option) *YahooFetcher {
	return &YahooFetcher{opts: applyOptions(DefaultYahooBaseURL, opts), crumb: crumb}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps a listing entry to Yahoo's ticker: .TW for the primary
// board and .TWO for OTC.
func yahooSymbol(e model.ListingEntry) string {
	if e.Market == model.MarketOTC {
		return e.Ticker + ".TWO"
	}
	return e.Ticker + ".TW"
}

// yahooError covers the JSON error bodies the download endpoint returns
// instead of CSV.
type yahooError struct {
	Finance *struct {
		Error *yahooErrorBody `json:"error"`
	} `json:"finance"`
	Chart *struct {
		Error *yahooErrorBody `json:"error"`
	} `json:"chart"`
}

type yahooErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (y yahooError) body() *yahooErrorBody {
	if y.Finance != nil && y.Finance.Error != nil {
		return y.Finance.Error
	}
	if y.Chart != nil && y.Chart.Error != nil {
		return y.Chart.Error
	}
	return nil
}

func (f *YahooFetcher) downloadURL(e model.ListingEntry, r model.DateRange) (string, error) {
	start, err := time.ParseInLocation(model.DateLayout, r.Start, model.Taipei)
	if err != nil {
		return "", fmt.Errorf("yahoo: start: %w", err)
	}
	end, err := time.ParseInLocation(model.DateLayout, r.End, model.Taipei)
	if err != nil {
		return "", fmt.Errorf("yahoo: end: %w", err)
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	// period2 is exclusive upstream
	q.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	if f.crumb != "" {
		q.Set("crumb", f.crumb)
	}
	return fmt.Sprintf("%s/%s?%s", f.opts.baseURL, url.PathEscape(yahooSymbol(e)), q.Encode()), nil
}

// FetchDailyBars downloads the CSV history for the window. Rows that cannot
// be coerced are skipped with a warning.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, e model.ListingEntry, r model.DateRange) ([]model.DailyBar, error) {
	endpoint, err := f.downloadURL(e, r)
	if err != nil {
		return nil, err
	}
	req, err := newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	f.opts.logger.Debug().Str("ticker", e.Ticker).Str("range", r.String()).Msg("Yahoo download request")
	resp, body, err := do(f.opts.client, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var ye yahooError
		if err := json.Unmarshal(trimmed, &ye); err == nil {
			if eb := ye.body(); eb != nil {
				if strings.EqualFold(eb.Code, "Unauthorized") {
					return nil, &RateLimitError{Source: f.Name(), Message: eb.Description}
				}
				if resp.StatusCode == http.StatusNotFound {
					f.opts.logger.Warn().Str("ticker", e.Ticker).Str("code", eb.Code).Msg("Yahoo has no data for ticker")
					return nil, nil
				}
				return nil, &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Endpoint: yahooSymbol(e), Message: eb.Code + ": " + eb.Description}
			}
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized:
		return nil, &RateLimitError{Source: f.Name(), Message: truncate(body, 200)}
	case resp.StatusCode == http.StatusNotFound:
		f.opts.logger.Warn().Str("ticker", e.Ticker).Msg("Yahoo has no data for ticker")
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Endpoint: yahooSymbol(e), Message: truncate(body, 200)}
	}

	bars, err := f.parseCSV(e.Ticker, body)
	if err != nil {
		return nil, &ValidationError{Source: f.Name(), Ticker: e.Ticker, Err: err}
	}
	return validBars(f.opts.logger, f.Name(), e.Ticker, bars), nil
}

var requiredColumns = []string{"Date", "Open", "Close", "High", "Low"}

func (f *YahooFetcher) parseCSV(ticker string, body []byte) ([]model.DailyBar, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", c, header)
		}
	}
	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var bars []model.DailyBar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.opts.logger.Warn().Err(err).Str("ticker", ticker).Int("line", line).Msg("Skipping malformed CSV row")
			continue
		}
		bar, err := normalize.Bar(normalize.RawBar{
			Date:   cell(rec, "Date"),
			Open:   cell(rec, "Open"),
			Close:  cell(rec, "Close"),
			High:   cell(rec, "High"),
			Low:    cell(rec, "Low"),
			Volume: cell(rec, "Volume"),
		})
		if err != nil {
			f.opts.logger.Warn().Err(err).Str("ticker", ticker).Int("line", line).Msg("Skipping unparseable bar")
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
