package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/model"
)

const finMindPayload = `{"msg":"success","status":200,"data":[
 {"date":"2020-12-31","stock_id":"2330","type":"Revenue","value":361533000000,"origin_name":"營業收入合計"},
 {"date":"2020-12-31","stock_id":"2330","type":"EPS","value":5.51,"origin_name":"基本每股盈餘"},
 {"date":"2021-03-31","stock_id":"2330","type":"Revenue","value":362410000000,"origin_name":"營業收入合計"},
 {"date":"2021-03-31","stock_id":"2330","type":"TotalNonoperatingIncomeAndExpense","value":2510000000,"origin_name":"營業外收入及支出合計"},
 {"date":"bad","stock_id":"2330","type":"Revenue","value":1,"origin_name":""},
 {"date":"2021-03-31","stock_id":"2330","type":"EPS","value":5.39,"origin_name":"基本每股盈餘"}
]}`

func TestFinMindFetcher_FoldsItems(t *testing.T) {
	var q map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		w.Write([]byte(finMindPayload))
	}))
	defer srv.Close()

	f := NewFinMindFetcher("secret", WithBaseURL(srv.URL))
	r := model.PeriodRange{Start: model.Period{Year: 2020, Season: 4}, End: model.Period{Year: 2021, Season: 1}}
	stmts, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	require.NoError(t, err)

	assert.Equal(t, []string{"TaiwanStockFinancialStatements"}, q["dataset"])
	assert.Equal(t, []string{"2330"}, q["data_id"])
	assert.Equal(t, []string{"2020-10-01"}, q["start_date"])
	assert.Equal(t, []string{"2021-03-31"}, q["end_date"])
	assert.Equal(t, []string{"secret"}, q["token"])

	require.Len(t, stmts, 2)
	assert.Equal(t, model.Period{Year: 2020, Season: 4}, stmts[0].Period())
	assert.Equal(t, int64(361533000), stmts[0].Revenue)
	assert.Equal(t, "5.51", stmts[0].EPS.String())
	assert.Equal(t, model.Period{Year: 2021, Season: 1}, stmts[1].Period())
	assert.Equal(t, int64(2510000), stmts[1].NonOperatingNet)
}

func TestFinMindFetcher_QuotaIsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msg":"Requests reach the upper limit.","status":402}`))
	}))
	defer srv.Close()

	f := NewFinMindFetcher("", WithBaseURL(srv.URL))
	r := model.PeriodRange{Start: model.Period{Year: 2021, Season: 1}, End: model.Period{Year: 2021, Season: 1}}
	_, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
}

func TestFinMindFetcher_GarbageIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	f := NewFinMindFetcher("", WithBaseURL(srv.URL))
	r := model.PeriodRange{Start: model.Period{Year: 2021, Season: 1}, End: model.Period{Year: 2021, Season: 1}}
	_, err := f.FetchIncomeStatements(context.Background(), model.ListingEntry{Ticker: "2330"}, r)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}
