package reconcile

import (
	"fmt"
	"time"

	"TWStockHarvester/internal/model"
)

// DateRequest is what the caller asked for on the command line.
type DateRequest struct {
	Range  model.DateRange
	Latest bool
}

// Dates returns the date windows still to fetch given the stored bar dates.
// An empty result means the request is already covered.
func Dates(req DateRequest, stored []string, today time.Time) ([]model.DateRange, error) {
	for _, d := range stored {
		if _, err := model.ParseDate(d); err != nil {
			return nil, fmt.Errorf("stored bar: %w", err)
		}
	}

	if req.Latest {
		return latestDates(req.Range, stored, today)
	}

	r, err := model.NewDateRange(req.Range.Start, req.Range.End)
	if err != nil {
		return nil, err
	}
	var out []model.DateRange
	for _, s := range gaps(r.Start, r.End, stored) {
		out = append(out, model.DateRange{Start: s.start, End: s.end})
	}
	return out, nil
}

// latestDates fetches from the newest stored date through tomorrow, both
// read on the exchange's calendar.
func latestDates(fallback model.DateRange, stored []string, today time.Time) ([]model.DateRange, error) {
	end := today.In(model.Taipei).AddDate(0, 0, 1).Format(model.DateLayout)
	if len(stored) == 0 {
		if fallback.Start == "" {
			return nil, ErrNoBaseline
		}
		if fallback.End == "" {
			fallback.End = end
		}
		r, err := model.NewDateRange(fallback.Start, fallback.End)
		if err != nil {
			return nil, err
		}
		return []model.DateRange{r}, nil
	}

	last := stored[0]
	for _, d := range stored[1:] {
		if d > last {
			last = d
		}
	}
	if last > end {
		return nil, nil
	}
	return []model.DateRange{{Start: last, End: end}}, nil
}
