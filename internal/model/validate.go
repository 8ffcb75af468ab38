package model

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a record against its struct tags.
func Validate(v any) error {
	if err := validatorInstance().Struct(v); err != nil {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	return nil
}

// Rejected describes a record dropped at the validation boundary.
type Rejected struct {
	Key string
	Err error
}

// ValidBars returns the bars that pass validation plus a report of the rest.
func ValidBars(bars []DailyBar) ([]DailyBar, []Rejected) {
	out := bars[:0:0]
	var rejected []Rejected
	for _, b := range bars {
		if err := Validate(b); err != nil {
			rejected = append(rejected, Rejected{Key: b.Date, Err: err})
			continue
		}
		if b.Low.GreaterThan(b.High) {
			rejected = append(rejected, Rejected{Key: b.Date, Err: fmt.Errorf("low %s above high %s", b.Low, b.High)})
			continue
		}
		out = append(out, b)
	}
	return out, rejected
}

// ValidStatements is ValidBars for income statements.
func ValidStatements(stmts []IncomeStatement) ([]IncomeStatement, []Rejected) {
	out := stmts[:0:0]
	var rejected []Rejected
	for _, s := range stmts {
		if err := Validate(s); err != nil {
			rejected = append(rejected, Rejected{Key: s.Period().String(), Err: err})
			continue
		}
		out = append(out, s)
	}
	return out, rejected
}
