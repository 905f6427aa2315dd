// Package finance holds the payroll and forecasting rules: monthly summaries,
// contract payroll, compliance alerts, forecasts and budget performance.
//
// Everything here is computed from explicit inputs. Data comes in through the
// small interfaces declared next to each operation; the models package provides
// the gorm-backed implementations.
package finance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidScope    = errors.New("scope must name exactly one of user or company")
	ErrInvalidContract = errors.New("invalid contract")
	ErrInvalidHorizon  = errors.New("months ahead must be at least 1")
	ErrInvalidPeriod   = errors.New("invalid period")
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Scope selects whose records are aggregated: a single user, or every user of a company.
type Scope struct {
	UserId    int    `json:"user_id,omitempty"`
	CompanyId string `json:"company_id,omitempty"`
}

func UserScope(userId int) Scope {
	return Scope{UserId: userId}
}

func CompanyScope(companyId string) Scope {
	return Scope{CompanyId: companyId}
}

// Validate requires exactly one of UserId and CompanyId. A CompanyId that is
// set but blank is rejected rather than ignored.
func (s Scope) Validate() error {
	if s.CompanyId != "" && strings.TrimSpace(s.CompanyId) == "" {
		return ErrInvalidScope
	}
	if (s.UserId > 0) == s.IsCompany() {
		return ErrInvalidScope
	}
	return nil
}

func (s Scope) IsCompany() bool {
	return strings.TrimSpace(s.CompanyId) != ""
}

func (s Scope) String() string {
	if s.IsCompany() {
		return "company:" + s.CompanyId
	}
	return fmt.Sprintf("user:%d", s.UserId)
}

// Period is a calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December || year < 1 {
		return Period{}, fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, year, month)
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

// Start is midnight UTC on the first day of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the exclusive upper bound: the first instant of the next month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) AddMonths(n int) Period {
	return PeriodOf(p.Start().AddDate(0, n, 0))
}

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MonthlySummary is derived on demand and never stored as a source of truth.
type MonthlySummary struct {
	Scope         Scope           `json:"scope"`
	Period        Period          `json:"period"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	TripCount     int64           `json:"trip_count"`
	ActiveDrivers int64           `json:"active_drivers"`
}

// IsEmpty reports a month with no recorded activity.
func (s MonthlySummary) IsEmpty() bool {
	return s.TotalIncome.IsZero() && s.TotalExpenses.IsZero() && s.TripCount == 0
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// percentOf returns value*rate/100.
func percentOf(value, rate decimal.Decimal) decimal.Decimal {
	return value.Mul(rate).Div(hundred)
}
