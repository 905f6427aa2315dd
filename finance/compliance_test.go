package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeComplianceSource struct {
	drivers    []DriverExpiry
	insurance  []VehicleDate
	service    []VehicleDate
	companies  []string
	cutoffs    []time.Time
	failOnCall error
}

func (f *fakeComplianceSource) DriversWithLicenseExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]DriverExpiry, error) {
	f.companies = append(f.companies, companyId)
	f.cutoffs = append(f.cutoffs, cutoff)
	var out []DriverExpiry
	for _, d := range f.drivers {
		if !d.LicenseExpiry.After(cutoff) {
			out = append(out, d)
		}
	}
	return out, f.failOnCall
}

func (f *fakeComplianceSource) VehiclesWithInsuranceExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]VehicleDate, error) {
	f.companies = append(f.companies, companyId)
	f.cutoffs = append(f.cutoffs, cutoff)
	return filterDates(f.insurance, cutoff), nil
}

func (f *fakeComplianceSource) VehiclesWithServiceDueBy(ctx context.Context, companyId string, cutoff time.Time) ([]VehicleDate, error) {
	f.companies = append(f.companies, companyId)
	f.cutoffs = append(f.cutoffs, cutoff)
	return filterDates(f.service, cutoff), nil
}

func filterDates(in []VehicleDate, cutoff time.Time) []VehicleDate {
	var out []VehicleDate
	for _, v := range in {
		if !v.Date.After(cutoff) {
			out = append(out, v)
		}
	}
	return out
}

// memoryAlertStore mimics a unique key on active alerts.
type memoryAlertStore struct {
	active    map[string]ComplianceAlert
	racing    bool
	inserted  int
	insertErr error
}

func alertKey(companyId string, t AlertType, e EntityType, id int) string {
	return fmt.Sprintf("%s|%s|%s|%d", companyId, t, e, id)
}

func (m *memoryAlertStore) ActiveAlertExists(ctx context.Context, companyId string, t AlertType, e EntityType, id int) (bool, error) {
	if m.racing {
		return false, nil
	}
	_, ok := m.active[alertKey(companyId, t, e, id)]
	return ok, nil
}

func (m *memoryAlertStore) InsertAlert(ctx context.Context, a ComplianceAlert) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	key := alertKey(a.CompanyId, a.AlertType, a.EntityType, a.EntityId)
	if _, ok := m.active[key]; ok {
		return false, nil
	}
	m.active[key] = a
	m.inserted++
	return true, nil
}

func newStore() *memoryAlertStore {
	return &memoryAlertStore{active: map[string]ComplianceAlert{}}
}

var sweepNow = time.Date(2026, time.May, 10, 15, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return sweepNow }

func TestAlertPriorities(t *testing.T) {
	today := Day(sweepNow)
	cases := []struct {
		name  string
		alert ComplianceAlert
		want  AlertPriority
	}{
		{"license in 7 days", LicenseAlert("c", today, DriverExpiry{LicenseExpiry: today.AddDate(0, 0, 7)}), PriorityHigh},
		{"license in 8 days", LicenseAlert("c", today, DriverExpiry{LicenseExpiry: today.AddDate(0, 0, 8)}), PriorityMedium},
		{"license already expired", LicenseAlert("c", today, DriverExpiry{LicenseExpiry: today.AddDate(0, 0, -2)}), PriorityHigh},
		{"insurance in 3 days", InsuranceAlert("c", today, VehicleDate{Date: today.AddDate(0, 0, 3)}), PriorityCritical},
		{"insurance in 4 days", InsuranceAlert("c", today, VehicleDate{Date: today.AddDate(0, 0, 4)}), PriorityHigh},
		{"service due", ServiceDueAlert("c", VehicleDate{Date: today.AddDate(0, 0, -30)}), PriorityMedium},
	}
	for _, tc := range cases {
		if tc.alert.Priority != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, tc.alert.Priority, tc.want)
		}
		if tc.alert.Status != AlertStatusActive {
			t.Fatalf("%s: new alerts must be active", tc.name)
		}
	}
}

func TestGenerateCreatesAndDeduplicates(t *testing.T) {
	today := Day(sweepNow)
	src := &fakeComplianceSource{
		drivers: []DriverExpiry{
			{DriverId: 1, Name: "Aung Aung", LicenseExpiry: today.AddDate(0, 0, 5)},
			{DriverId: 2, Name: "Su Su", LicenseExpiry: today.AddDate(0, 0, 31)},
		},
		insurance: []VehicleDate{{VehicleId: 10, Label: "Toyota Prius (YGN-1234)", Date: today.AddDate(0, 0, 30)}},
		service: []VehicleDate{
			{VehicleId: 10, Label: "Toyota Prius (YGN-1234)", Date: today},
			{VehicleId: 11, Label: "Honda Fit (YGN-9)", Date: today.AddDate(0, 0, 1)},
		},
	}
	store := newStore()
	g := &AlertGenerator{Source: src, Store: store, Now: fixedNow}

	created, err := g.Generate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if created != 3 {
		t.Fatalf("first sweep: created %d, want 3", created)
	}
	if _, ok := store.active[alertKey("c-1", AlertTypeServiceDue, EntityTypeVehicle, 10)]; !ok {
		t.Fatalf("service alert for vehicle 10 missing")
	}
	for _, c := range src.companies {
		if c != "c-1" {
			t.Fatalf("source queried for company %q", c)
		}
	}
	if !src.cutoffs[0].Equal(today.AddDate(0, 0, 30)) || !src.cutoffs[2].Equal(today) {
		t.Fatalf("cutoffs: %v", src.cutoffs)
	}

	again, err := g.Generate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if again != 0 || store.inserted != 3 {
		t.Fatalf("second sweep created %d (total %d), want 0", again, store.inserted)
	}
}

func TestGenerateCountsOnlyRowsTheStoreAccepted(t *testing.T) {
	today := Day(sweepNow)
	src := &fakeComplianceSource{drivers: []DriverExpiry{{DriverId: 1, LicenseExpiry: today}}}
	store := newStore()
	store.active[alertKey("c-1", AlertTypeLicenseExpiry, EntityTypeDriver, 1)] = ComplianceAlert{}
	store.racing = true

	created, err := (&AlertGenerator{Source: src, Store: store, Now: fixedNow}).Generate(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if created != 0 {
		t.Fatalf("duplicate rejected by store must not count, got %d", created)
	}
}

func TestGenerateErrors(t *testing.T) {
	g := &AlertGenerator{Source: &fakeComplianceSource{}, Store: newStore(), Now: fixedNow}
	if _, err := g.Generate(context.Background(), ""); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
	boom := errors.New("query failed")
	g.Source = &fakeComplianceSource{failOnCall: boom}
	if _, err := g.Generate(context.Background(), "c-1"); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	store := newStore()
	store.insertErr = boom
	g = &AlertGenerator{
		Source: &fakeComplianceSource{drivers: []DriverExpiry{{DriverId: 1, LicenseExpiry: Day(sweepNow)}}},
		Store:  store,
		Now:    fixedNow,
	}
	if _, err := g.Generate(context.Background(), "c-1"); !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
}
