package reports

import (
	"bytes"
	"fmt"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

// money cells are written as float64 so spreadsheets can sum them
func moneyCell(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

type payrollRow finance.PayrollResult

func (r payrollRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ContractId, r.DriverId, string(r.ContractType), r.Period.String(),
		moneyCell(r.TotalRevenue), moneyCell(r.BasePayment), moneyCell(r.CommissionToCompany),
		moneyCell(r.BonusEarned), moneyCell(r.GrossPayment), moneyCell(r.TaxWithheld),
		moneyCell(r.OtherDeductions), moneyCell(r.NetPayment),
	}
}

var payrollHeadings = []string{
	"Contract", "Driver", "Contract Type", "Period",
	"Revenue", "Base Payment", "Commission To Company",
	"Bonus", "Gross", "Tax Withheld",
	"Other Deductions", "Net Payment",
}

type summaryRow finance.MonthlySummary

func (r summaryRow) GetCellValues() []interface{} {
	return []interface{}{
		r.Period.String(), moneyCell(r.TotalIncome), moneyCell(r.TotalExpenses),
		moneyCell(r.NetProfit), r.TripCount, r.ActiveDrivers,
	}
}

var summaryHeadings = []string{"Month", "Income", "Expenses", "Net Profit", "Trips", "Active Drivers"}

type varianceRow struct {
	Name string
	Line finance.VarianceLine
}

func (r varianceRow) GetCellValues() []interface{} {
	return []interface{}{
		r.Name, moneyCell(r.Line.Target), moneyCell(r.Line.Actual),
		moneyCell(r.Line.Variance), r.Line.PercentOfGoal.Round(2).String() + "%",
	}
}

var varianceHeadings = []string{"Metric", "Target", "Actual", "Variance", "% of Target"}

func writeSheet(f *excelize.File, sheetName string, data []ExcelExporter, headings ...string) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	// Add data
	for rowNo, d := range data {
		for colNo, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(colNo+1, rowNo+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func newWorkbook(sheetName string, data []ExcelExporter, headings ...string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, sheetName, data, headings...); err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PayrollWorkbook lays out one row per payroll result.
func PayrollWorkbook(results []finance.PayrollResult) ([]byte, error) {
	data := make([]ExcelExporter, 0, len(results))
	for _, r := range results {
		data = append(data, payrollRow(r))
	}
	return newWorkbook("Payroll", data, payrollHeadings...)
}

// SummaryWorkbook lays out monthly summaries, oldest first.
func SummaryWorkbook(summaries []finance.MonthlySummary) ([]byte, error) {
	data := make([]ExcelExporter, 0, len(summaries))
	for _, s := range summaries {
		data = append(data, summaryRow(s))
	}
	return newWorkbook("Summary", data, summaryHeadings...)
}

// BudgetWorkbook lays out the variance of every budget metric.
func BudgetWorkbook(report finance.BudgetVarianceReport) ([]byte, error) {
	data := []ExcelExporter{
		varianceRow{Name: "Revenue", Line: report.Revenue},
		varianceRow{Name: "Expenses", Line: report.Expenses},
		varianceRow{Name: "Profit", Line: report.Profit},
		varianceRow{Name: "Trips", Line: report.Trips},
	}
	return newWorkbook("Budget", data, varianceHeadings...)
}

func ExportFileName(prefix string, suffix string) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, suffix)
}
