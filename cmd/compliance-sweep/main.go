// compliance-sweep creates compliance alerts and emits expiry and budget
// notifications. Run it daily, e.g. from Cloud Scheduler.
//
// Usage:
//
//	go run ./cmd/compliance-sweep [-company-id=<uuid>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/workflow"
)

func main() {
	companyID := flag.String("company-id", "", "Optional: sweep only one company. If empty, sweeps all active companies.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	var companies []string
	if id := strings.TrimSpace(*companyID); id != "" {
		companies = []string{id}
	}

	results, err := workflow.SweepCompanies(ctx, companies, time.Now())
	for _, r := range results {
		fmt.Printf("company %s: %d alerts created, %d notifications\n", r.CompanyId, r.AlertsCreated, r.NotificationsSent)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep finished with errors: %v\n", err)
		os.Exit(1)
	}
}
