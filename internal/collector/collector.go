// Package collector talks to the upstream price, statement and listing
// sources and turns their responses into canonical records.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"TWStockHarvester/internal/common"
	"TWStockHarvester/internal/model"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.164 Safari/537.36"
)

// NewHTTPClient creates a client with optional proxy support.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Option configures a fetcher.
type Option func(*options)

type options struct {
	client   *http.Client
	logger   arbor.ILogger
	baseURL  string
	interval time.Duration
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets a logger.
func WithLogger(l arbor.ILogger) Option {
	return func(o *options) { o.logger = l }
}

// WithBaseURL overrides the upstream endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithInterval sets the minimum delay between consecutive requests for
// fetchers that issue one request per period.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func applyOptions(baseURL string, opts []Option) options {
	o := options{baseURL: baseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = NewHTTPClient("", DefaultTimeout)
	}
	if o.logger == nil {
		o.logger = common.NewSilentLogger()
	}
	return o
}

// do sends req with the shared headers and returns the decoded body.
func do(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Connection", "close")
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}

// readBody returns the response as UTF-8. Exchange pages are served in
// Big5 (MS950); those are transcoded when declared or when the raw bytes
// are not valid UTF-8.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !isBig5(resp.Header.Get("Content-Type")) && utf8.Valid(raw) {
		return raw, nil
	}
	r := transform.NewReader(bytes.NewReader(raw), traditionalchinese.Big5.NewDecoder())
	return io.ReadAll(r)
}

func isBig5(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch strings.ToLower(params["charset"]) {
	case "big5", "ms950", "cp950", "big5-hkscs":
		return true
	}
	return false
}

func newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// validBars is the validation boundary for bars; rejects are logged and dropped.
func validBars(logger arbor.ILogger, source, ticker string, bars []model.DailyBar) []model.DailyBar {
	out, rejected := model.ValidBars(bars)
	for _, r := range rejected {
		logger.Warn().Err(r.Err).Str("source", source).Str("ticker", ticker).Str("date", r.Key).Msg("Dropping invalid bar")
	}
	return out
}

func validStatements(logger arbor.ILogger, source, ticker string, stmts []model.IncomeStatement) []model.IncomeStatement {
	out, rejected := model.ValidStatements(stmts)
	for _, r := range rejected {
		logger.Warn().Err(r.Err).Str("source", source).Str("ticker", ticker).Str("period", r.Key).Msg("Dropping invalid statement")
	}
	return out
}
