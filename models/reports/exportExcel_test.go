package reports

import (
	"bytes"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rawCell(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("read %s!%s: %v", sheet, cell, err)
	}
	return v
}

func TestPayrollWorkbook(t *testing.T) {
	results := []finance.PayrollResult{{
		ContractId:   7,
		DriverId:     3,
		ContractType: finance.ContractTypeCommissionOnly,
		Period:       finance.Period{Year: 2024, Month: time.March},
		TotalRevenue: decimal.RequireFromString("5000"),
		NetPayment:   decimal.RequireFromString("2126.255"),
	}}
	data, err := PayrollWorkbook(results)
	if err != nil {
		t.Fatalf("PayrollWorkbook: %v", err)
	}
	f := openWorkbook(t, data)

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Payroll" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	checks := map[string]string{
		"A1": "Contract",
		"L1": "Net Payment",
		"A2": "7",
		"B2": "3",
		"C2": string(finance.ContractTypeCommissionOnly),
		"D2": "2024-03",
		"E2": "5000",
		"L2": "2126.26",
	}
	for cell, want := range checks {
		if got := rawCell(t, f, "Payroll", cell); got != want {
			t.Fatalf("%s: got %q want %q", cell, got, want)
		}
	}
}

func TestSummaryWorkbookEmpty(t *testing.T) {
	data, err := SummaryWorkbook(nil)
	if err != nil {
		t.Fatalf("SummaryWorkbook: %v", err)
	}
	f := openWorkbook(t, data)
	if got := rawCell(t, f, "Summary", "F1"); got != "Active Drivers" {
		t.Fatalf("F1: got %q", got)
	}
	if got := rawCell(t, f, "Summary", "A2"); got != "" {
		t.Fatalf("expected no data rows, A2=%q", got)
	}
}

func TestBudgetWorkbook(t *testing.T) {
	report := finance.BudgetVarianceReport{
		Revenue: finance.VarianceLine{
			Target:        decimal.NewFromInt(10000),
			Actual:        decimal.NewFromInt(8000),
			Variance:      decimal.NewFromInt(-2000),
			PercentOfGoal: decimal.NewFromInt(80),
		},
	}
	data, err := BudgetWorkbook(report)
	if err != nil {
		t.Fatalf("BudgetWorkbook: %v", err)
	}
	f := openWorkbook(t, data)
	cases := []struct {
		cell string
		want string
	}{
		{"A2", "Revenue"},
		{"D2", "-2000"},
		{"E2", "80%"},
		{"A5", "Trips"},
	}
	for _, tc := range cases {
		if got := rawCell(t, f, "Budget", tc.cell); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.cell, got, tc.want)
		}
	}
}

func TestExportFileName(t *testing.T) {
	if got := ExportFileName("payroll", "2024-03"); got != "payroll_2024-03.xlsx" {
		t.Fatalf("got %q", got)
	}
}

func TestReportCacheKey(t *testing.T) {
	got := reportCacheKey("Forecast", "c1", "2024-03", "6")
	if got != "Report:Forecast:c1:2024-03:6" {
		t.Fatalf("got %q", got)
	}
}
