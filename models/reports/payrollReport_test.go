package reports

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
)

func TestPayableOnlyWhenNetPositive(t *testing.T) {
	cases := []struct {
		net  string
		want bool
	}{
		{"650", true},
		{"0.01", true},
		{"0", false},
		{"-0.39", false},
	}
	for _, tc := range cases {
		result := finance.PayrollResult{NetPayment: decimal.RequireFromString(tc.net)}
		if got := payable(result); got != tc.want {
			t.Fatalf("net %s: got %v", tc.net, got)
		}
	}
}

func TestPayrollRunResultBuckets(t *testing.T) {
	period := finance.Period{Year: 2026, Month: time.September}
	run := &PayrollRunResult{Period: period.String(), TotalNet: decimal.Zero}

	run.add(finance.PayrollResult{ContractId: 1, Period: period, NetPayment: decimal.NewFromInt(500)})
	run.skip(2)
	run.unpaid(3)
	run.add(finance.PayrollResult{ContractId: 4, Period: period, NetPayment: decimal.RequireFromString("120.50")})

	if run.Processed != 2 || run.Skipped != 1 || run.NothingToPay != 1 {
		t.Fatalf("counts processed=%d skipped=%d unpaid=%d", run.Processed, run.Skipped, run.NothingToPay)
	}
	if !run.TotalNet.Equal(decimal.RequireFromString("620.50")) {
		t.Fatalf("total net %s", run.TotalNet)
	}
	if len(run.UnpaidContracts) != 1 || run.UnpaidContracts[0] != 3 {
		t.Fatalf("unpaid contracts %v", run.UnpaidContracts)
	}
	if len(run.SkippedContracts) != 1 || run.SkippedContracts[0] != 2 {
		t.Fatalf("skipped contracts %v", run.SkippedContracts)
	}
}
