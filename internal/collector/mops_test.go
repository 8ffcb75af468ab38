package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/model"
)

const mopsIFRSPage = `<html><body>
<table class="hasBorder">
<tr><th>會計項目</th><th>110年第1季</th><th>109年第1季</th></tr>
<tr><td class="even">營業收入合計</td><td>362,410,422</td><td>310,597,183</td></tr>
<tr><td class="odd">營業成本合計</td><td>174,710,578</td><td>150,517,011</td></tr>
<tr><td class="even">營業毛利（毛損）</td><td>187,699,844</td><td>160,080,172</td></tr>
<tr><td class="odd">營業外收入及支出合計</td><td>2,510,000</td><td>1,000</td></tr>
<tr><td class="even">本期淨利（淨損）</td><td>139,692,840</td><td>117,062,893</td></tr>
<tr><td class="odd">基本每股盈餘</td><td>5.39</td><td>4.51</td></tr>
</table></body></html>`

const mopsLegacyPage = `<html><body><table>
<tr><td>營業收入淨額</td><td>105,000</td></tr>
<tr><td>營業外收入及利益</td><td>3,000</td></tr>
<tr><td>營業外費用及損失</td><td>1,000</td></tr>
<tr><td>基本每股盈餘</td><td>1.05</td></tr>
</table></body></html>`

type mopsRequest struct {
	path   string
	coID   string
	year   string
	season string
}

func newMOPSServer(t *testing.T, respond func(r *http.Request) string) (*httptest.Server, *[]mopsRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []mopsRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		mu.Lock()
		seen = append(seen, mopsRequest{path: r.URL.Path, coID: r.PostForm.Get("co_id"), year: r.PostForm.Get("year"), season: r.PostForm.Get("season")})
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(respond(r)))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestMOPSFetcher_SelectsEndpointByIFRSYear(t *testing.T) {
	srv, seen := newMOPSServer(t, func(r *http.Request) string {
		if r.URL.Path == "/legacy" {
			return mopsLegacyPage
		}
		return mopsIFRSPage
	})

	f := NewMOPSFetcher(srv.URL+"/legacy", WithBaseURL(srv.URL+"/ifrs"), WithInterval(0))
	r := model.PeriodRange{Start: model.Period{Year: 2012, Season: 4}, End: model.Period{Year: 2013, Season: 1}}
	stmts, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	require.NoError(t, err)

	require.Len(t, *seen, 2)
	assert.Equal(t, mopsRequest{path: "/legacy", coID: "2330", year: "101", season: "04"}, (*seen)[0])
	assert.Equal(t, mopsRequest{path: "/ifrs", coID: "2330", year: "102", season: "01"}, (*seen)[1])

	require.Len(t, stmts, 2)
	assert.Equal(t, int64(105000), stmts[0].Revenue)
	assert.Equal(t, int64(2000), stmts[0].NonOperatingNet)
	assert.Equal(t, "1.05", stmts[0].EPS.String())

	assert.Equal(t, model.Period{Year: 2013, Season: 1}, stmts[1].Period())
	assert.Equal(t, int64(362410422), stmts[1].Revenue)
	assert.Equal(t, int64(187699844), stmts[1].GrossProfit)
	assert.Equal(t, int64(2510000), stmts[1].NonOperatingNet)
	assert.Equal(t, int64(139692840), stmts[1].NetIncome)
}

func TestMOPSFetcher_SkipsPeriodsWithoutData(t *testing.T) {
	srv, seen := newMOPSServer(t, func(r *http.Request) string {
		if r.PostForm.Get("season") == "02" {
			return `<html><body><center><h3>查詢無資料</h3></center></body></html>`
		}
		return mopsIFRSPage
	})

	f := NewMOPSFetcher("", WithBaseURL(srv.URL), WithInterval(0))
	r := model.PeriodRange{Start: model.Period{Year: 2021, Season: 1}, End: model.Period{Year: 2021, Season: 3}}
	stmts, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	require.NoError(t, err)
	assert.Len(t, *seen, 3)
	require.Len(t, stmts, 2)
	assert.Equal(t, 1, stmts[0].Season)
	assert.Equal(t, 3, stmts[1].Season)
}

func TestMOPSFetcher_ThrottlePageIsRateLimit(t *testing.T) {
	srv, _ := newMOPSServer(t, func(r *http.Request) string {
		return `<html><body>查詢過於頻繁，請於稍後再查詢!</body></html>`
	})

	f := NewMOPSFetcher("", WithBaseURL(srv.URL), WithInterval(0))
	r := model.PeriodRange{Start: model.Period{Year: 2021, Season: 1}, End: model.Period{Year: 2021, Season: 1}}
	_, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	assert.True(t, IsRateLimit(err))
}

func TestMOPSFetcher_HonoursCancelledContext(t *testing.T) {
	srv, _ := newMOPSServer(t, func(r *http.Request) string { return mopsIFRSPage })

	f := NewMOPSFetcher("", WithBaseURL(srv.URL), WithInterval(DefaultMOPSInterval))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := model.PeriodRange{Start: model.Period{Year: 2021, Season: 1}, End: model.Period{Year: 2021, Season: 2}}
	_, err := f.FetchIncomeStatements(ctx, model.ListingEntry{Ticker: "2330"}, r)
	assert.Error(t, err)
}
