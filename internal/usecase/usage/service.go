package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/reag/internal/domain/usage"
	"github.com/kailas-cloud/reag/internal/domain/usage/budget"
)

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br can be nil (no budget configured); provider
// labels the report in that case.
func New(br BudgetReader, provider string) *Service {
	if br != nil {
		provider = br.Provider()
	}
	return &Service{
		br:       br,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	var start, end time.Time
	var limit, used int64

	switch period {
	case domusage.PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
		}
	default:
		period = domusage.PeriodMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
		}
	}

	b := budget.New(limit, used, end.UnixMilli())
	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), s.provider, b)
}
