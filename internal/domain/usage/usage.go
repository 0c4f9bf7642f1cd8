// Package usage describes engine token consumption reports.
package usage

import (
	"fmt"

	"github.com/kailas-cloud/reag/internal/domain/usage/budget"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query string value to a Period. Empty selects month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Report is an engine usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	budget      budget.Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, provider string, b budget.Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the engine provider the report covers.
func (r *Report) Provider() string { return r.provider }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
