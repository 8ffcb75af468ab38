package notifier

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"TWStockHarvester/internal/harvester"
)

const timeLayout = "2006-01-02 15:04"

// FormatSummary formats a finished run for Telegram.
func FormatSummary(s *harvester.Summary, finished time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>TW harvest: %s</b> | %s\n\n", s.Kind, finished.Format(timeLayout)))
	b.WriteString(fmt.Sprintf("Tickers: %d\n", s.Tickers))
	b.WriteString(fmt.Sprintf("  new: %d | updated: %d | skipped: %d\n", s.Inserted, s.Updated, s.Skipped))
	b.WriteString(fmt.Sprintf("Records stored: %d\n", s.Records))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", s.Elapsed.Round(time.Second)))
	b.WriteString(fmt.Sprintf("<code>%s</code>", s.RunID))
	return b.String()
}

// FormatAbort formats a run that stopped on an error.
func FormatAbort(kind string, err error, finished time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 <b>TW harvest aborted: %s</b> | %s\n\n", kind, finished.Format(timeLayout)))

	var exhausted *harvester.RetriesExhaustedError
	if errors.As(err, &exhausted) {
		b.WriteString(fmt.Sprintf("Ticker: %s\n", html.EscapeString(exhausted.Ticker)))
		b.WriteString(fmt.Sprintf("Attempts: %d\n", exhausted.Attempts))
		b.WriteString(fmt.Sprintf("Cause: %s\n", html.EscapeString(exhausted.Cause.Error())))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(err.Error())))
	return b.String()
}
