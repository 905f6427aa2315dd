package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePerformance struct {
	perf  *Performance
	err   error
	calls int
}

func (f *fakePerformance) Performance(ctx context.Context, c Contract, p Period) (*Performance, error) {
	f.calls++
	return f.perf, f.err
}

func revenue(total, deductions string) *Performance {
	return &Performance{TotalRevenue: dec(total), Deductions: dec(deductions)}
}

var may2026 = Period{Year: 2026, Month: 5}

func TestPayrollScenarios(t *testing.T) {
	cases := []struct {
		name     string
		contract Contract
		perf     *Performance
		base     string
		bonus    string
		gross    string
		tax      string
		net      string
	}{
		{
			name:     "commission only",
			contract: Contract{Type: ContractTypeCommissionOnly, CommissionRate: dec("20")},
			perf:     revenue("10000", "0"),
			base:     "8000", bonus: "0", gross: "8000", tax: "2400", net: "5600",
		},
		{
			name:     "rental below fee without guarantee",
			contract: Contract{Type: ContractTypeMonthlyRental, MonthlyFee: dec("6000")},
			perf:     revenue("5000", "0"),
			base:     "-1000", bonus: "0", gross: "-1000", tax: "0", net: "0",
		},
		{
			name: "bonus above threshold",
			contract: Contract{Type: ContractTypeCommissionOnly, CommissionRate: dec("0"),
				BonusThreshold: dec("8000"), BonusRate: dec("10")},
			perf: revenue("10000", "0"),
			base: "10000", bonus: "200", gross: "10200", tax: "3060", net: "7140",
		},
		{
			name:     "hybrid adds fee to driver share",
			contract: Contract{Type: ContractTypeHybrid, MonthlyFee: dec("500"), CommissionRate: dec("10")},
			perf:     revenue("4000", "100"),
			base:     "4100", bonus: "0", gross: "4100", tax: "1230", net: "2770",
		},
		{
			name:     "lease to own behaves like rental",
			contract: Contract{Type: ContractTypeLeaseToOwn, MonthlyFee: dec("1500")},
			perf:     revenue("4000", "0"),
			base:     "2500", bonus: "0", gross: "2500", tax: "750", net: "1750",
		},
		{
			name:     "deductions larger than pay clamp to zero",
			contract: Contract{Type: ContractTypeCommissionOnly, CommissionRate: dec("50")},
			perf:     revenue("1000", "900"),
			base:     "500", bonus: "0", gross: "500", tax: "150", net: "0",
		},
		{
			name:     "missing performance is zero revenue",
			contract: Contract{Type: ContractTypeCommissionOnly, CommissionRate: dec("20")},
			perf:     nil,
			base:     "0", bonus: "0", gross: "0", tax: "0", net: "0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc := NewPayrollCalculator(&fakePerformance{perf: tc.perf}, DefaultTaxRate)
			got, err := calc.Calculate(context.Background(), tc.contract, may2026)
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(dec(want)) {
					t.Fatalf("%s: got %s want %s", field, got, want)
				}
			}
			check("base", got.BasePayment, tc.base)
			check("bonus", got.BonusEarned, tc.bonus)
			check("gross", got.GrossPayment, tc.gross)
			check("tax", got.TaxWithheld, tc.tax)
			check("net", got.NetPayment, tc.net)
			if got.HasPerformance != (tc.perf != nil) {
				t.Fatalf("HasPerformance: got %v", got.HasPerformance)
			}
		})
	}
}

func TestMinimumGuaranteeFloorsEveryType(t *testing.T) {
	for contractType := range baseRules {
		c := Contract{Type: contractType, MonthlyFee: dec("3000"), CommissionRate: dec("40"), MinimumGuarantee: dec("2500")}
		got := ComputePayroll(c, may2026, Performance{TotalRevenue: dec("1000")}, DefaultTaxRate)
		if got.BasePayment.LessThan(dec("2500")) {
			t.Fatalf("%s: base %s below guarantee", contractType, got.BasePayment)
		}
		if contractType != ContractTypeHybrid && !got.BasePayment.Equal(dec("2500")) {
			t.Fatalf("%s: base %s, want exactly the guarantee", contractType, got.BasePayment)
		}
	}
}

func TestBonusRequiresRevenueStrictlyAboveThreshold(t *testing.T) {
	c := Contract{Type: ContractTypeCommissionOnly, BonusThreshold: dec("8000"), BonusRate: dec("10")}
	got := ComputePayroll(c, may2026, Performance{TotalRevenue: dec("8000")}, DefaultTaxRate)
	if !got.BonusEarned.IsZero() {
		t.Fatalf("bonus at threshold: got %s", got.BonusEarned)
	}
	c.BonusThreshold = decimal.Zero
	got = ComputePayroll(c, may2026, Performance{TotalRevenue: dec("8000")}, DefaultTaxRate)
	if !got.BonusEarned.IsZero() {
		t.Fatalf("zero threshold must disable bonus, got %s", got.BonusEarned)
	}
}

func TestZeroRevenueZeroTermsPaysNothing(t *testing.T) {
	for contractType := range baseRules {
		got := ComputePayroll(Contract{Type: contractType}, may2026, Performance{}, DefaultTaxRate)
		if !got.NetPayment.IsZero() {
			t.Fatalf("%s: net %s", contractType, got.NetPayment)
		}
	}
}

func TestTaxAndNetProperties(t *testing.T) {
	revenues := []string{"0", "1", "999.99", "5000", "12000"}
	fees := []string{"0", "800", "6000"}
	rates := []string{"0", "15", "100"}
	deductions := []string{"0", "250", "20000"}
	for contractType := range baseRules {
		for _, r := range revenues {
			for _, f := range fees {
				for _, rate := range rates {
					for _, d := range deductions {
						c := Contract{Type: contractType, MonthlyFee: dec(f), CommissionRate: dec(rate),
							BonusThreshold: dec("3000"), BonusRate: dec(rate)}
						got := ComputePayroll(c, may2026, Performance{TotalRevenue: dec(r), Deductions: dec(d)}, DefaultTaxRate)
						if got.NetPayment.IsNegative() {
							t.Fatalf("%s r=%s f=%s: negative net %s", contractType, r, f, got.NetPayment)
						}
						wantTax := decimal.Zero
						if got.GrossPayment.IsPositive() {
							wantTax = got.GrossPayment.Mul(dec("0.30"))
						}
						if !got.TaxWithheld.Equal(wantTax) {
							t.Fatalf("%s: tax %s want %s", contractType, got.TaxWithheld, wantTax)
						}
						if !got.TotalDeductions.Equal(got.TaxWithheld.Add(dec(d))) {
							t.Fatalf("%s: total deductions %s", contractType, got.TotalDeductions)
						}
					}
				}
			}
		}
	}
}

func TestTaxRateOverride(t *testing.T) {
	c := Contract{Type: ContractTypeCommissionOnly, CommissionRate: dec("20")}
	src := &fakePerformance{perf: revenue("10000", "0")}

	calc := NewPayrollCalculator(src, dec("0.25"))
	got, err := calc.Calculate(context.Background(), c, may2026)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !got.TaxWithheld.Equal(dec("2000")) {
		t.Fatalf("tax: got %s", got.TaxWithheld)
	}

	zero := NewPayrollCalculator(src, decimal.Zero)
	got, _ = zero.Calculate(context.Background(), c, may2026)
	if !got.TaxWithheld.IsZero() || !got.NetPayment.Equal(dec("8000")) {
		t.Fatalf("explicit zero rate: tax %s net %s", got.TaxWithheld, got.NetPayment)
	}

	unset := &PayrollCalculator{Source: src}
	got, _ = unset.Calculate(context.Background(), c, may2026)
	if !got.TaxRate.Equal(DefaultTaxRate) {
		t.Fatalf("unset rate: got %s", got.TaxRate)
	}
}

func TestCalculateRejectsInvalidContracts(t *testing.T) {
	cases := []Contract{
		{Type: "weekly"},
		{Type: ContractTypeCommissionOnly, CommissionRate: dec("101")},
		{Type: ContractTypeHybrid, BonusRate: dec("-1")},
		{Type: ContractTypeMonthlyRental, MonthlyFee: dec("-5")},
		{Type: ContractTypeMonthlyRental, MinimumGuarantee: dec("-0.01")},
	}
	for _, c := range cases {
		src := &fakePerformance{}
		_, err := NewPayrollCalculator(src, DefaultTaxRate).Calculate(context.Background(), c, may2026)
		if !errors.Is(err, ErrInvalidContract) {
			t.Fatalf("%+v: expected ErrInvalidContract, got %v", c, err)
		}
		if src.calls != 0 {
			t.Fatalf("performance fetched for invalid contract")
		}
	}
}

func TestCalculatePropagatesSourceError(t *testing.T) {
	boom := errors.New("db down")
	calc := NewPayrollCalculator(&fakePerformance{err: boom}, DefaultTaxRate)
	_, err := calc.Calculate(context.Background(), Contract{Type: ContractTypeHybrid}, may2026)
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}
