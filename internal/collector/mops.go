package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/normalize"
)

const (
	// DefaultMOPSIFRSURL serves IFRS-era comprehensive income statements.
	DefaultMOPSIFRSURL = "https://mops.twse.com.tw/mops/web/ajax_t164sb04"
	// DefaultMOPSLegacyURL serves pre-IFRS income statements.
	DefaultMOPSLegacyURL = "https://mops.twse.com.tw/mops/web/ajax_t05st34"
	// DefaultMOPSInterval keeps MOPS from refusing bursts of queries.
	DefaultMOPSInterval = 3 * time.Second

	// rocYearOffset converts a Gregorian year to the Minguo calendar.
	rocYearOffset = 1911
)

var (
	mopsThrottleMarkers = []string{"查詢過於頻繁", "Overrun", "too many"}
	mopsNoDataMarkers   = []string{"查無資料", "查詢無資料", "無應編製合併財報", "資料庫中查無需求資料"}
)

// MOPSFetcher implements StatementFetcher against the MOPS query forms,
// issuing one POST per season with a fixed delay between requests.
type MOPSFetcher struct {
	opts      options
	legacyURL string
	limiter   *rate.Limiter
}

// NewMOPSFetcher creates a MOPS fetcher. WithBaseURL overrides the IFRS
// endpoint; legacyURL overrides the pre-IFRS one when not empty.
func NewMOPSFetcher(legacyURL string, opts ...Option) *MOPSFetcher {
	o := applyOptions(DefaultMOPSIFRSURL, opts)
	if legacyURL == "" {
		legacyURL = DefaultMOPSLegacyURL
	}
	interval := o.interval
	if interval < 0 {
		interval = 0
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &MOPSFetcher{opts: o, legacyURL: legacyURL, limiter: rate.NewLimiter(limit, 1)}
}

func (f *MOPSFetcher) Name() string { return "mops" }

func (f *MOPSFetcher) endpoint(p model.Period) string {
	if p.Year < normalize.IFRSAdoptionYear {
		return f.legacyURL
	}
	return f.opts.baseURL
}

func mopsForm(ticker string, p model.Period) url.Values {
	form := url.Values{}
	form.Set("encodeURIComponent", "1")
	form.Set("step", "1")
	form.Set("firstin", "1")
	form.Set("off", "1")
	form.Set("queryName", "co_id")
	form.Set("inpuType", "co_id")
	form.Set("TYPEK", "all")
	form.Set("isnew", "false")
	form.Set("co_id", ticker)
	form.Set("year", strconv.Itoa(p.Year-rocYearOffset))
	form.Set("season", fmt.Sprintf("%02d", p.Season))
	return form
}

// FetchIncomeStatements walks each season in the range sequentially.
// Seasons MOPS has no filing for are skipped.
func (f *MOPSFetcher) FetchIncomeStatements(ctx context.Context, e model.ListingEntry, r model.PeriodRange) ([]model.IncomeStatement, error) {
	var stmts []model.IncomeStatement
	for _, p := range r.Periods() {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("mops wait: %w", err)
		}
		stmt, ok, err := f.fetchPeriod(ctx, e.Ticker, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			f.opts.logger.Info().Str("ticker", e.Ticker).Str("period", p.String()).Msg("MOPS has no statement for period")
			continue
		}
		stmts = append(stmts, stmt)
	}
	return validStatements(f.opts.logger, f.Name(), e.Ticker, stmts), nil
}

func (f *MOPSFetcher) fetchPeriod(ctx context.Context, ticker string, p model.Period) (model.IncomeStatement, bool, error) {
	endpoint := f.endpoint(p)
	req, err := newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(mopsForm(ticker, p).Encode()))
	if err != nil {
		return model.IncomeStatement{}, false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f.opts.logger.Debug().Str("ticker", ticker).Str("period", p.String()).Str("endpoint", endpoint).Msg("MOPS form request")
	resp, body, err := do(f.opts.client, req)
	if err != nil {
		return model.IncomeStatement{}, false, fmt.Errorf("mops fetch: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return model.IncomeStatement{}, false, &RateLimitError{Source: f.Name(), Message: truncate(body, 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return model.IncomeStatement{}, false, &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Endpoint: endpoint, Message: truncate(body, 200)}
	}

	page := string(body)
	for _, m := range mopsThrottleMarkers {
		if strings.Contains(page, m) {
			return model.IncomeStatement{}, false, &RateLimitError{Source: f.Name(), Message: m}
		}
	}
	for _, m := range mopsNoDataMarkers {
		if strings.Contains(page, m) {
			return model.IncomeStatement{}, false, nil
		}
	}

	rows, err := parseMOPSRows(body)
	if err != nil {
		return model.IncomeStatement{}, false, &ValidationError{Source: f.Name(), Ticker: ticker, Err: err}
	}
	if len(rows) == 0 {
		return model.IncomeStatement{}, false, nil
	}
	stmt, err := normalize.MOPSStatement(p, rows)
	if err != nil {
		return model.IncomeStatement{}, false, &ValidationError{Source: f.Name(), Ticker: ticker, Err: err}
	}
	return stmt, true, nil
}

// parseMOPSRows reads every two-or-more column row of the page's tables,
// taking the first cell as label and the second as the current amount.
func parseMOPSRows(body []byte) ([]normalize.Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var rows []normalize.Row
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		if label == "" {
			return
		}
		rows = append(rows, normalize.Row{Label: label, Value: strings.TrimSpace(cells.Eq(1).Text())})
	})
	return rows, nil
}
