// run-payroll processes payroll of one month for one company, or every active company.
// Contracts already paid for the month are skipped, so reruns are safe.
//
// Usage:
//
//	go run ./cmd/run-payroll -period=2024-03 [-company-id=<uuid>] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

func main() {
	companyID := flag.String("company-id", "", "Optional: run only one company. If empty, runs all active companies.")
	period := flag.String("period", "", "Month to pay (YYYY-MM). Defaults to the previous month.")
	dryRun := flag.Bool("dry-run", false, "Only print the calculation")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	p := strings.TrimSpace(*period)
	if p == "" {
		p = finance.PeriodOf(time.Now().UTC()).AddMonths(-1).String()
	}

	companies := []string{strings.TrimSpace(*companyID)}
	if companies[0] == "" {
		ids, err := models.ActiveCompanyIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list companies: %v\n", err)
			os.Exit(1)
		}
		companies = ids
	}

	failed := 0
	for _, companyId := range companies {
		cctx := utils.SystemContext(ctx, companyId)
		if *dryRun {
			results, err := reports.PreviewPayroll(cctx, p)
			if err != nil {
				fmt.Fprintf(os.Stderr, "company %s: %v\n", companyId, err)
				failed++
				continue
			}
			for _, r := range results {
				fmt.Printf("company %s contract %d driver %d: gross %s net %s\n",
					companyId, r.ContractId, r.DriverId, r.GrossPayment.StringFixed(2), r.NetPayment.StringFixed(2))
			}
			continue
		}
		run, err := reports.ProcessPayroll(cctx, p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "company %s: %v\n", companyId, err)
			failed++
			continue
		}
		fmt.Printf("company %s %s: processed=%d skipped=%d nothing_to_pay=%d total_net=%s\n",
			companyId, run.Period, run.Processed, run.Skipped, run.NothingToPay, run.TotalNet.StringFixed(2))
	}
	if failed > 0 {
		os.Exit(1)
	}
}
