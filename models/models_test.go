package models

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

func TestPayrollPaymentWithholdsTaxOnlyWhenPaid(t *testing.T) {
	period := finance.Period{Year: 2024, Month: time.March}
	paid := finance.PayrollResult{
		ContractId:      7,
		Period:          period,
		GrossPayment:    decimal.NewFromInt(1000),
		TaxWithheld:     decimal.NewFromInt(300),
		OtherDeductions: decimal.NewFromInt(50),
		NetPayment:      decimal.NewFromInt(650),
	}
	payDay := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	p := PayrollPayment("c1", paid, payDay)
	if p.ReferencePeriod != "2024-03" || p.PaymentType != PaymentTypeSalary || p.Status != PaymentStatusPending {
		t.Fatalf("unexpected payment %+v", p)
	}
	if !p.Amount.Equal(decimal.NewFromInt(650)) || !p.TaxWithheld.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("amount %s tax %s", p.Amount, p.TaxWithheld)
	}

	unpaid := paid
	unpaid.NetPayment = decimal.NewFromInt(-20)
	if q := PayrollPayment("c1", unpaid, payDay); !q.TaxWithheld.IsZero() {
		t.Fatalf("tax recorded on negative net: %s", q.TaxWithheld)
	}
}

func TestCompositeCursorRoundTrip(t *testing.T) {
	value := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC).Format(cursorTimeLayout)
	cursor := EncodeCompositeCursor(value, 42)
	gotValue, gotId := DecodeCompositeCursor(&cursor)
	if gotValue != value || gotId != 42 {
		t.Fatalf("got %q %d", gotValue, gotId)
	}

	for _, bad := range []string{"", "%%%", "bm9waXBl", "YXxi"} {
		bad := bad
		if v, id := DecodeCompositeCursor(&bad); v != "" || id != 0 {
			t.Fatalf("%q decoded to %q %d", bad, v, id)
		}
	}
	if v, id := DecodeCompositeCursor(nil); v != "" || id != 0 {
		t.Fatalf("nil cursor decoded to %q %d", v, id)
	}
}

func TestPageSize(t *testing.T) {
	cases := map[int]int{0: DefaultPageSize, -3: DefaultPageSize, 5: 5, MaxPageSize + 1: MaxPageSize}
	for in, want := range cases {
		if got := PageSize(in); got != want {
			t.Fatalf("PageSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestActiveAlertKeyDistinguishesEntities(t *testing.T) {
	a := activeAlertKey("c1", finance.AlertTypeLicenseExpiry, finance.EntityTypeDriver, 3)
	b := activeAlertKey("c1", finance.AlertTypeLicenseExpiry, finance.EntityTypeDriver, 4)
	c := activeAlertKey("c2", finance.AlertTypeLicenseExpiry, finance.EntityTypeDriver, 3)
	if a == b || a == c {
		t.Fatalf("keys collide: %s %s %s", a, b, c)
	}
}

func TestNewNotificationFromRequestDefaults(t *testing.T) {
	n, err := NewNotificationFromRequest(finance.NotificationRequest{
		CompanyId: "c1",
		Title:     "Report ready",
		Metadata:  map[string]string{"report_type": "payroll"},
	}, "corr-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != finance.NotificationInfo || n.Category != finance.CategoryGeneral || n.Priority != finance.PriorityMedium {
		t.Fatalf("defaults not applied: %+v", n)
	}
	if n.PublishStatus != OutboxPublishStatusPending || n.CorrelationId != "corr-1" {
		t.Fatalf("unexpected outbox fields: %+v", n)
	}
	if *n.IsRead || *n.IsDismissed {
		t.Fatalf("new notification must be unread")
	}
	if n.MetadataMap()["report_type"] != "payroll" {
		t.Fatalf("metadata lost: %q", n.Metadata)
	}

	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"metadata":{"report_type":"payroll"}`) {
		t.Fatalf("metadata not exposed as object: %s", b)
	}
}

func TestConvertToNotificationMessage(t *testing.T) {
	userId := 9
	n := Notification{ID: 3, CompanyId: "c1", UserId: &userId, Title: "t", Type: finance.NotificationAlert, Priority: finance.PriorityHigh, Metadata: "not json"}
	msg := ConvertToNotificationMessage(n)
	if msg.ID != 3 || msg.Type != "alert" || msg.Priority != string(finance.PriorityHigh) || *msg.UserId != 9 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Metadata != nil {
		t.Fatalf("malformed metadata should be dropped, got %v", msg.Metadata)
	}
}

func TestScheduledReportHelpers(t *testing.T) {
	r := ScheduledReport{
		ID:         5,
		Recipients: "a@x.test,b@x.test",
		Parameters: `{"period":"2024-02"}`,
		NextRun:    time.Date(2024, 3, 1, 8, 0, 0, 0, time.FixedZone("X", 3600)),
	}
	if got := r.RunKey(); got != "5@2024-03-01T07:00:00Z" {
		t.Fatalf("RunKey = %s", got)
	}
	if got := r.RecipientList(); len(got) != 2 || got[1] != "b@x.test" {
		t.Fatalf("recipients %v", got)
	}
	if r.ParameterMap()["period"] != "2024-02" {
		t.Fatalf("parameters %v", r.ParameterMap())
	}
	if len((ScheduledReport{}).RecipientList()) != 0 || len((ScheduledReport{}).ParameterMap()) != 0 {
		t.Fatalf("empty report should have no recipients or parameters")
	}
}

func TestRolePermissions(t *testing.T) {
	cases := []struct {
		role UserRole
		perm Permission
		want bool
	}{
		{UserRoleAdmin, PermissionManageAll, true},
		{UserRoleOwner, PermissionManageAll, true},
		{UserRoleManager, PermissionManageAll, false},
		{UserRoleManager, PermissionEditContracts, true},
		{UserRoleDriver, PermissionViewOwn, true},
		{UserRoleDriver, PermissionViewFinances, false},
	}
	for _, tc := range cases {
		if got := tc.role.HasPermission(tc.perm); got != tc.want {
			t.Fatalf("%s/%s: got %v", tc.role, tc.perm, got)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Time().Day() != 29 {
		t.Fatalf("parsed %v", d.Time())
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &d); err == nil {
		t.Fatalf("expected error for bad layout")
	}
	b, _ := json.Marshal(Date{})
	if string(b) != "null" {
		t.Fatalf("zero date marshalled to %s", b)
	}
	if DatePtr(nil) != nil || DatePtr(&Date{}) != nil {
		t.Fatalf("empty dates should map to nil")
	}
}

func TestNewCompanyValidation(t *testing.T) {
	_, err := (&NewCompany{Name: "  "}).toCompany()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: got %v", err)
	}
	_, err = (&NewCompany{Name: "Fleet", Timezone: "Mars/Olympus"}).toCompany()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad timezone: got %v", err)
	}
	c, err := (&NewCompany{Name: " Fleet "}).toCompany()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Fleet" || c.ID == "" || c.Timezone == "" || !*c.IsActive {
		t.Fatalf("unexpected company %+v", c)
	}
}

func TestPerformanceUpsertKeepsIdentityColumns(t *testing.T) {
	sch, err := schema.Parse(&DriverPerformance{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	for _, col := range performanceUpsertColumns {
		if sch.LookUpField(col) == nil {
			t.Fatalf("upsert column %s is not a DriverPerformance column", col)
		}
		switch col {
		case "id", "company_id", "created_at", "driver_id", "contract_id", "year", "month":
			t.Fatalf("upsert overwrites %s", col)
		}
	}
	if len(performanceUpsert.DoUpdates) != len(performanceUpsertColumns) || performanceUpsert.UpdateAll {
		t.Fatalf("unexpected upsert clause %+v", performanceUpsert)
	}
	for _, col := range performanceUpsert.Columns {
		if sch.LookUpField(col.Name) == nil {
			t.Fatalf("conflict column %s is not a DriverPerformance column", col.Name)
		}
	}
}
