// Package normalize maps upstream rows onto the canonical record shapes.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"TWStockHarvester/internal/model"
)

var thousand = decimal.NewFromInt(1000)

// RawBar is one CSV row as text, before any coercion.
type RawBar struct {
	Date   string
	Open   string
	Close  string
	High   string
	Low    string
	Volume string
}

// Bar coerces a raw row. Prices are quantized to 2 places rounding half up;
// volume is rounded to the nearest thousand and expressed in thousands, with
// a missing volume counting as zero.
func Bar(r RawBar) (model.DailyBar, error) {
	date := strings.TrimSpace(r.Date)
	if _, err := model.ParseDate(date); err != nil {
		return model.DailyBar{}, err
	}

	var bar model.DailyBar
	bar.Date = date
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &bar.Open},
		{"close", r.Close, &bar.Close},
		{"high", r.High, &bar.High},
		{"low", r.Low, &bar.Low},
	} {
		d, err := Price(f.raw)
		if err != nil {
			return model.DailyBar{}, fmt.Errorf("%s %s: %w", date, f.name, err)
		}
		*f.dst = d
	}

	vol, err := VolumeThousands(r.Volume)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("%s volume: %w", date, err)
	}
	bar.Volume = vol
	return bar, nil
}

// Price parses a price and rounds it half up to 2 decimal places.
func Price(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if missing(s) {
		return decimal.Decimal{}, fmt.Errorf("missing value %q", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	return d.Round(2), nil
}

// VolumeThousands converts a share count into thousands of shares.
func VolumeThousands(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if missing(s) {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return d.Div(thousand).Round(0).IntPart(), nil
}

func missing(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "nan", "-":
		return true
	}
	return false
}
