// process-scheduled-reports generates every scheduled report that is due,
// uploads it to GCS when GCS_BUCKET is set and notifies the company.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/workflow"
)

func main() {
	limit := flag.Int("limit", workflow.DefaultDueReportBatch, "Maximum number of due reports to run")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	summary, err := workflow.ProcessScheduledReports(ctx, time.Now().UTC(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to process scheduled reports: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("due=%d generated=%d skipped=%d failed=%d\n", summary.Due, summary.Generated, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		os.Exit(2)
	}
}
