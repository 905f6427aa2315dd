package reports

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

const (
	DefaultForecastMonths = 6
	MaxForecastMonths     = 24
)

// GetForecast projects the company's revenue and expenses for the next months.
func GetForecast(ctx context.Context, monthsAhead int) ([]finance.ForecastPoint, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if monthsAhead == 0 {
		monthsAhead = DefaultForecastMonths
	}
	if monthsAhead < 1 {
		return nil, finance.ErrInvalidHorizon
	}
	if monthsAhead > MaxForecastMonths {
		monthsAhead = MaxForecastMonths
	}

	now := time.Now().UTC()
	// the history window moves once a month, so the month is part of the key
	key := reportCacheKey("Forecast", companyId, finance.PeriodOf(now).String(), strconv.Itoa(monthsAhead))
	return cachedReport(ctx, "Forecast", key, func(ctx context.Context) ([]finance.ForecastPoint, error) {
		f := finance.Forecaster{
			Summaries: models.NewSummarizer(),
			Now:       func() time.Time { return now },
		}
		return f.Forecast(ctx, companyId, monthsAhead)
	})
}
