package main

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/models"
)

const filterDateLayout = "2006-01-02"

type filters struct {
	startDate string
	endDate   string
	minAmount float64
	maxAmount float64
	note      string

	// minSet and maxSet make zero a usable bound.
	minSet bool
	maxSet bool
}

func (f *filters) active() bool {
	return f.startDate != "" || f.endDate != "" || f.minSet || f.maxSet || f.note != ""
}

// toFilterFunc keeps the records matching every set filter. Dates compare on
// the calendar day of the record; records without a readable day only pass
// when no date filter is set.
func (f *filters) toFilterFunc() csv.FilterFunc {
	return func(t *models.Transaction) bool {
		if f.startDate != "" || f.endDate != "" {
			date, ok := recordDay(t)
			if !ok {
				return false
			}
			if f.startDate != "" && date < f.startDate {
				return false
			}
			if f.endDate != "" && date > f.endDate {
				return false
			}
		}
		if f.minSet && t.Amount.LessThan(decimal.NewFromFloat(f.minAmount)) {
			return false
		}
		if f.maxSet && t.Amount.GreaterThan(decimal.NewFromFloat(f.maxAmount)) {
			return false
		}
		if f.note != "" && !strings.Contains(strings.ToLower(t.Note), strings.ToLower(f.note)) {
			return false
		}
		return true
	}
}

func (f *filters) validate() error {
	for _, d := range []string{f.startDate, f.endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(filterDateLayout, d); err != nil {
			return err
		}
	}
	return nil
}

func recordDay(t *models.Transaction) (string, bool) {
	if len(t.Date) < len(filterDateLayout) {
		return "", false
	}
	day := t.Date[:len(filterDateLayout)]
	if _, err := time.Parse(filterDateLayout, day); err != nil {
		return "", false
	}
	return day, true
}
