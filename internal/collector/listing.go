package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"TWStockHarvester/internal/model"
)

const (
	// DefaultPrimaryListingURL lists instruments on the main TWSE board.
	DefaultPrimaryListingURL = "https://isin.twse.com.tw/isin/C_public.jsp?strMode=2"
	// DefaultOTCListingURL lists instruments on the OTC (TPEx) board.
	DefaultOTCListingURL = "https://isin.twse.com.tw/isin/C_public.jsp?strMode=4"

	// commonStockCFICode marks ordinary shares in the ISIN listing.
	commonStockCFICode = "ESVUFR"

	headerCodeAndName = "有價證券代號及名稱"
	headerCFICode     = "CFICode"
	headerSector      = "產業別"

	ideographicSpace = "　"
)

// ListingFetcher scrapes both ISIN listing pages into a Listing.
type ListingFetcher struct {
	opts       options
	primaryURL string
	otcURL     string
}

// NewListingFetcher creates a listing scraper. Empty URLs use the defaults.
func NewListingFetcher(primaryURL, otcURL string, opts ...Option) *ListingFetcher {
	if primaryURL == "" {
		primaryURL = DefaultPrimaryListingURL
	}
	if otcURL == "" {
		otcURL = DefaultOTCListingURL
	}
	return &ListingFetcher{opts: applyOptions("", opts), primaryURL: primaryURL, otcURL: otcURL}
}

// FetchListing fetches both boards and merges them, OTC taking precedence.
func (f *ListingFetcher) FetchListing(ctx context.Context) (*model.Listing, error) {
	primary, err := f.fetchBoard(ctx, f.primaryURL, model.MarketPrimary)
	if err != nil {
		return nil, err
	}
	otc, err := f.fetchBoard(ctx, f.otcURL, model.MarketOTC)
	if err != nil {
		return nil, err
	}
	listing := model.NewListing(primary, otc)
	f.opts.logger.Info().Int("primary", len(primary)).Int("otc", len(otc)).Int("total", listing.Len()).Msg("Listing built")
	return listing, nil
}

func (f *ListingFetcher) fetchBoard(ctx context.Context, endpoint string, market model.Market) ([]model.ListingEntry, error) {
	req, err := newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, body, err := do(f.opts.client, req)
	if err != nil {
		return nil, fmt.Errorf("listing fetch %s: %w", market, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Source: "listing", StatusCode: resp.StatusCode, Endpoint: endpoint, Message: truncate(body, 200)}
	}
	entries, err := parseListing(body, market)
	if err != nil {
		return nil, &ValidationError{Source: "listing", Ticker: string(market), Err: err}
	}
	return entries, nil
}

// parseListing reads the first table whose header row names the
// code-and-name column and keeps common stock rows only.
func parseListing(body []byte, market model.Market) ([]model.ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		entries []model.ListingEntry
		found   bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := map[string]int{}
		table.Find("tr").Each(func(i int, tr *goquery.Selection) {
			cells := tr.Find("td, th")
			if len(cols) == 0 {
				cells.Each(func(j int, c *goquery.Selection) {
					cols[strings.TrimSpace(c.Text())] = j
				})
				if _, ok := cols[headerCodeAndName]; !ok {
					cols = map[string]int{}
					return
				}
				found = true
				return
			}
			text := func(name string) string {
				j, ok := cols[name]
				if !ok || j >= cells.Length() {
					return ""
				}
				return strings.TrimSpace(cells.Eq(j).Text())
			}
			if text(headerCFICode) != commonStockCFICode {
				return
			}
			ticker, name, ok := splitCodeAndName(text(headerCodeAndName))
			if !ok {
				return
			}
			entry := model.ListingEntry{Ticker: ticker, Name: name, Sector: text(headerSector), Market: market}
			if model.Validate(entry) != nil {
				return
			}
			entries = append(entries, entry)
		})
		return !found
	})

	if !found {
		return nil, fmt.Errorf("no listing table with %q header", headerCodeAndName)
	}
	return entries, nil
}

// splitCodeAndName splits "2330　台積電" on the ideographic space.
func splitCodeAndName(s string) (string, string, bool) {
	code, name, ok := strings.Cut(s, ideographicSpace)
	if !ok {
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return "", "", false
		}
		code, name = fields[0], strings.Join(fields[1:], " ")
	}
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" {
		return "", "", false
	}
	return code, name, true
}
