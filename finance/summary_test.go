package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	income   decimal.Decimal
	trips    int64
	expenses decimal.Decimal
	drivers  int64
	err      error

	driverCalls int
	lastFrom    time.Time
	lastTo      time.Time
}

func (f *fakeFetcher) SumIncome(ctx context.Context, s Scope, from, to time.Time) (decimal.Decimal, int64, error) {
	f.lastFrom, f.lastTo = from, to
	return f.income, f.trips, f.err
}

func (f *fakeFetcher) SumExpenses(ctx context.Context, s Scope, from, to time.Time) (decimal.Decimal, error) {
	return f.expenses, f.err
}

func (f *fakeFetcher) CountActiveDrivers(ctx context.Context, companyId string) (int64, error) {
	f.driverCalls++
	return f.drivers, f.err
}

func TestSummarizeCompanyScope(t *testing.T) {
	f := &fakeFetcher{income: dec("1500.50"), trips: 12, expenses: dec("400.25"), drivers: 3}
	got, err := Summarize(context.Background(), f, CompanyScope("c-1"), 2026, time.February)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !got.NetProfit.Equal(dec("1100.25")) {
		t.Fatalf("net profit: got %s", got.NetProfit)
	}
	if !got.NetProfit.Equal(got.TotalIncome.Sub(got.TotalExpenses)) {
		t.Fatalf("net profit must equal income minus expenses")
	}
	if got.TripCount != 12 || got.ActiveDrivers != 3 {
		t.Fatalf("counts: trips=%d drivers=%d", got.TripCount, got.ActiveDrivers)
	}
	wantFrom := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !f.lastFrom.Equal(wantFrom) || !f.lastTo.Equal(wantFrom.AddDate(0, 1, 0)) {
		t.Fatalf("range: %s - %s", f.lastFrom, f.lastTo)
	}
}

func TestSummarizeUserScopeSkipsDriverCount(t *testing.T) {
	f := &fakeFetcher{income: dec("10"), expenses: dec("0"), drivers: 9}
	got, err := Summarize(context.Background(), f, UserScope(7), 2026, time.March)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if f.driverCalls != 0 || got.ActiveDrivers != 0 {
		t.Fatalf("driver count must only be fetched for companies")
	}
}

func TestSummarizeEmptyMonthIsZero(t *testing.T) {
	f := &fakeFetcher{income: decimal.Zero, expenses: decimal.Zero}
	got, err := Summarize(context.Background(), f, CompanyScope("c-1"), 2026, time.April)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !got.IsEmpty() || !got.NetProfit.IsZero() {
		t.Fatalf("expected empty summary, got %+v", got)
	}
}

func TestSummarizeInvalidScope(t *testing.T) {
	for _, s := range []Scope{{}, {UserId: 1, CompanyId: "c"}, {CompanyId: "   "}, {UserId: 7, CompanyId: "   "}} {
		f := &fakeFetcher{drivers: 3}
		_, err := Summarize(context.Background(), f, s, 2026, time.May)
		if !errors.Is(err, ErrInvalidScope) {
			t.Fatalf("%+v: expected ErrInvalidScope, got %v", s, err)
		}
		if f.driverCalls != 0 {
			t.Fatalf("%+v: fetcher queried for an invalid scope", s)
		}
	}
	if (Scope{UserId: 7, CompanyId: "   "}).IsCompany() {
		t.Fatalf("blank company id treated as company scope")
	}
}

func TestSummarizeInvalidMonth(t *testing.T) {
	_, err := Summarize(context.Background(), &fakeFetcher{}, UserScope(1), 2026, 13)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestSummarizePropagatesFetcherError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := Summarize(context.Background(), &fakeFetcher{err: boom}, UserScope(1), 2026, time.May)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetcher error, got %v", err)
	}
}

func TestPeriodHelpers(t *testing.T) {
	p, err := ParsePeriod("2025-12")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if next := p.AddMonths(1); next.Year != 2026 || next.Month != time.January {
		t.Fatalf("AddMonths: %v", next)
	}
	if prev := p.AddMonths(-12); prev.String() != "2024-12" {
		t.Fatalf("AddMonths(-12): %s", prev)
	}
	if !p.Before(p.AddMonths(1)) || p.Before(p) {
		t.Fatalf("Before is wrong")
	}
	if _, err := ParsePeriod("2025/12"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
