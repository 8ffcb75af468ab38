package reconcile

import (
	"time"

	"TWStockHarvester/internal/model"
)

// PeriodRequest is the season-range counterpart of DateRequest.
type PeriodRequest struct {
	Range  model.PeriodRange
	Latest bool
}

// Periods returns the season windows still to fetch. Comparison uses the
// numeric Year*10+Season key.
func Periods(req PeriodRequest, stored []model.Period, today time.Time) ([]model.PeriodRange, error) {
	if req.Latest {
		return latestPeriods(req.Range, stored, today)
	}

	r, err := model.NewPeriodRange(req.Range.Start, req.Range.End)
	if err != nil {
		return nil, err
	}
	keys := make([]int, len(stored))
	for i, p := range stored {
		keys[i] = p.Key()
	}

	var out []model.PeriodRange
	for _, s := range gaps(r.Start.Key(), r.End.Key(), keys) {
		out = append(out, model.PeriodRange{Start: fromKey(s.start), End: fromKey(s.end)})
	}
	return out, nil
}

func fromKey(k int) model.Period {
	return model.Period{Year: k / 10, Season: k % 10}
}

func latestPeriods(fallback model.PeriodRange, stored []model.Period, today time.Time) ([]model.PeriodRange, error) {
	latest := LatestAnnounced(today)
	if len(stored) == 0 {
		if fallback.Start == (model.Period{}) {
			return nil, ErrNoBaseline
		}
		end := fallback.End
		if end == (model.Period{}) {
			end = latest
		}
		r, err := model.NewPeriodRange(fallback.Start, end)
		if err != nil {
			return nil, err
		}
		return []model.PeriodRange{r}, nil
	}

	last := stored[0]
	for _, p := range stored[1:] {
		if p.Compare(last) > 0 {
			last = p
		}
	}
	if last.Compare(latest) >= 0 {
		return nil, nil
	}
	return []model.PeriodRange{{Start: last, End: latest}}, nil
}

// LatestAnnounced is the newest season whose statements must have been
// filed by today. Filing deadlines: Q4 by 3/31, Q1 by 5/15, Q2 by 8/14,
// Q3 by 11/14.
func LatestAnnounced(today time.Time) model.Period {
	today = today.In(model.Taipei)
	y := today.Year()
	md := int(today.Month())*100 + today.Day()
	switch {
	case md <= 331:
		return model.Period{Year: y - 1, Season: 3}
	case md <= 515:
		return model.Period{Year: y - 1, Season: 4}
	case md <= 814:
		return model.Period{Year: y, Season: 1}
	case md <= 1114:
		return model.Period{Year: y, Season: 2}
	}
	return model.Period{Year: y, Season: 3}
}
