package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

// MySQL and Redis integration tests.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./models -run FleetIntegration -v
//
// Every subtest registers its own company so they do not see each other's rows.

func TestFleetIntegration(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "fleet_test")
	t.Setenv("ENABLE_REPORT_CACHE", "true")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	t.Run("payroll books only positive net once per period", testPayrollRun)
	t.Run("one active alert per entity until dismissed", testAlertStoreActiveKey)
	t.Run("summary sums are scoped through company users", testSummaryFetcherScope)
	t.Run("recording a month again updates the same row", testPerformanceUpsert)
	t.Run("income analytics group by weekday hour day and vehicle", testIncomeAnalytics)
}

var testPeriod = finance.Period{Year: 2024, Month: time.March}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@fleet.test", prefix, time.Now().UnixNano())
}

// ownerContext registers a company and returns a request context of its owner.
func ownerContext(t *testing.T, name string) (context.Context, *models.Company) {
	t.Helper()
	company, owner, err := models.RegisterCompany(context.Background(), &models.NewRegistration{
		Company:   models.NewCompany{Name: name, Timezone: "UTC"},
		Email:     uniqueEmail("owner"),
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Owner",
	})
	if err != nil {
		t.Fatalf("RegisterCompany: %v", err)
	}
	ctx := utils.SystemContext(context.Background(), company.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserNameInContext(ctx, owner.FullName())
	ctx = utils.SetUserRoleInContext(ctx, string(owner.Role))
	return ctx, company
}

func createDriver(t *testing.T, ctx context.Context) *models.User {
	t.Helper()
	driver, err := models.CreateDriver(ctx, &models.NewDriver{
		Email:     uniqueEmail("driver"),
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Driver",
	})
	if err != nil {
		t.Fatalf("CreateDriver: %v", err)
	}
	return driver
}

func commissionContract(t *testing.T, ctx context.Context, driverId int) *models.EmploymentContract {
	t.Helper()
	contract, err := models.CreateContract(ctx, &models.NewContract{
		DriverId:        driverId,
		ContractType:    string(finance.ContractTypeCommissionOnly),
		StartDate:       models.Date(testPeriod.Start()),
		CommissionRate:  decimal.NewFromInt(25),
		PaymentSchedule: models.PaymentScheduleMonthly,
	})
	if err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	return contract
}

func recordRevenue(t *testing.T, ctx context.Context, contractId int, revenue int64) *models.DriverPerformance {
	t.Helper()
	perf, err := models.RecordPerformance(ctx, &models.NewDriverPerformance{
		ContractId:   contractId,
		Period:       testPeriod.String(),
		TotalRevenue: decimal.NewFromInt(revenue),
		TotalTrips:   100,
	})
	if err != nil {
		t.Fatalf("RecordPerformance: %v", err)
	}
	return perf
}

func recordIncome(t *testing.T, ctx context.Context, driverId int, vehicleId *int, amount string, at time.Time) {
	t.Helper()
	if _, err := models.CreateIncome(ctx, &models.NewIncome{
		UserId:       &driverId,
		VehicleId:    vehicleId,
		Amount:       decimal.RequireFromString(amount),
		DateRecorded: &at,
	}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
}

func testPayrollRun(t *testing.T) {
	ctx, _ := ownerContext(t, "Payroll Fleet")
	paid := commissionContract(t, ctx, createDriver(t, ctx).ID)
	idle := commissionContract(t, ctx, createDriver(t, ctx).ID)
	recordRevenue(t, ctx, paid.ID, 5000)

	first, err := reports.ProcessPayroll(ctx, testPeriod.String())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Processed != 1 || first.Skipped != 0 || first.NothingToPay != 1 {
		t.Fatalf("first run %+v", first)
	}
	if len(first.UnpaidContracts) != 1 || first.UnpaidContracts[0] != idle.ID {
		t.Fatalf("unpaid contracts %v", first.UnpaidContracts)
	}

	period := testPeriod.String()
	if payments, err := models.ListPayments(ctx, &idle.ID, &period, nil); err != nil || len(payments) != 0 {
		t.Fatalf("contract without earnings got payments %v (err %v)", payments, err)
	}

	// once its month is recorded the idle contract is paid by the next run
	recordRevenue(t, ctx, idle.ID, 2000)
	second, err := reports.ProcessPayroll(ctx, period)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 1 || second.Skipped != 1 || second.NothingToPay != 0 {
		t.Fatalf("second run %+v", second)
	}
	if len(second.SkippedContracts) != 1 || second.SkippedContracts[0] != paid.ID {
		t.Fatalf("skipped contracts %v", second.SkippedContracts)
	}

	payments, err := models.ListPayments(ctx, &paid.ID, &period, nil)
	if err != nil || len(payments) != 1 {
		t.Fatalf("expected one payment, got %v (err %v)", payments, err)
	}
	if !payments[0].Amount.IsPositive() || payments[0].Status != models.PaymentStatusPending {
		t.Fatalf("unexpected payment %+v", payments[0])
	}

	dup := *payments[0]
	dup.ID = 0
	err = models.InsertPayment(config.GetDB().WithContext(ctx), &dup)
	if !errors.Is(err, models.ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}
}

func testAlertStoreActiveKey(t *testing.T) {
	ctx, company := ownerContext(t, "Alert Fleet")
	driver := createDriver(t, ctx)
	store := models.GormAlertStore{}
	alert := finance.ComplianceAlert{
		CompanyId:  company.ID,
		AlertType:  finance.AlertTypeLicenseExpiry,
		EntityType: finance.EntityTypeDriver,
		EntityId:   driver.ID,
		Title:      "License expiring",
		DueDate:    time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		Priority:   finance.PriorityHigh,
	}

	if created, err := store.InsertAlert(ctx, alert); err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	if created, err := store.InsertAlert(ctx, alert); err != nil || created {
		t.Fatalf("second insert must be rejected quietly: created=%v err=%v", created, err)
	}

	var row models.ComplianceAlert
	if err := config.GetDB().WithContext(ctx).
		Where("company_id = ? AND entity_id = ?", company.ID, driver.ID).
		First(&row).Error; err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if _, err := models.DismissAlert(ctx, row.ID); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}
	exists, err := store.ActiveAlertExists(ctx, company.ID, alert.AlertType, alert.EntityType, alert.EntityId)
	if err != nil || exists {
		t.Fatalf("dismissed alert still active: exists=%v err=%v", exists, err)
	}
	if created, err := store.InsertAlert(ctx, alert); err != nil || !created {
		t.Fatalf("insert after dismiss: created=%v err=%v", created, err)
	}

	var count int64
	config.GetDB().WithContext(ctx).Model(&models.ComplianceAlert{}).
		Where("company_id = ? AND entity_id = ?", company.ID, driver.ID).
		Count(&count)
	if count != 2 {
		t.Fatalf("expected dismissed plus new alert, got %d rows", count)
	}
}

func testSummaryFetcherScope(t *testing.T) {
	ctxA, companyA := ownerContext(t, "Scope Fleet A")
	ctxB, companyB := ownerContext(t, "Scope Fleet B")
	driverA := createDriver(t, ctxA)
	driverB := createDriver(t, ctxB)

	at := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	from, to := testPeriod.Start(), testPeriod.AddMonths(1).Start()

	reportKey := "Report:Overview:" + companyA.ID + ":" + testPeriod.String()
	if err := config.SetRedisObject(reportKey, map[string]int{"stale": 1}, time.Hour); err != nil {
		t.Fatalf("seed report cache: %v", err)
	}

	recordIncome(t, ctxA, driverA.ID, nil, "100", at)
	recordIncome(t, ctxA, driverA.ID, nil, "200", at.Add(time.Hour))
	recordIncome(t, ctxA, driverA.ID, nil, "50.5", at.AddDate(0, 0, 3))
	recordIncome(t, ctxB, driverB.ID, nil, "999", at)
	if _, err := models.CreateExpense(ctxA, &models.NewExpense{
		UserId:       &driverA.ID,
		Amount:       decimal.NewFromInt(40),
		Category:     "fuel",
		DateRecorded: &at,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	var stale map[string]int
	if ok, _ := config.GetRedisObject(reportKey, &stale); ok {
		t.Fatalf("income write left cached report %s", reportKey)
	}

	// tenant guard off: the scoping must come from the query itself
	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	fetcher := models.GormSummaryFetcher{}

	total, trips, err := fetcher.SumIncome(ctx, finance.CompanyScope(companyA.ID), from, to)
	if err != nil || !total.Equal(decimal.RequireFromString("350.5")) || trips != 3 {
		t.Fatalf("company A income %s trips %d err %v", total, trips, err)
	}
	total, trips, err = fetcher.SumIncome(ctx, finance.UserScope(driverA.ID), from, to)
	if err != nil || !total.Equal(decimal.RequireFromString("350.5")) || trips != 3 {
		t.Fatalf("driver A income %s trips %d err %v", total, trips, err)
	}
	total, trips, err = fetcher.SumIncome(ctx, finance.CompanyScope(companyB.ID), from, to)
	if err != nil || !total.Equal(decimal.NewFromInt(999)) || trips != 1 {
		t.Fatalf("company B income %s trips %d err %v", total, trips, err)
	}
	expenses, err := fetcher.SumExpenses(ctx, finance.CompanyScope(companyA.ID), from, to)
	if err != nil || !expenses.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("company A expenses %s err %v", expenses, err)
	}
	drivers, err := fetcher.CountActiveDrivers(ctx, companyA.ID)
	if err != nil || drivers != 1 {
		t.Fatalf("company A drivers %d err %v", drivers, err)
	}
}

func testPerformanceUpsert(t *testing.T) {
	ctx, _ := ownerContext(t, "Upsert Fleet")
	driver := createDriver(t, ctx)
	contract := commissionContract(t, ctx, driver.ID)

	first := recordRevenue(t, ctx, contract.ID, 3000)
	time.Sleep(1100 * time.Millisecond)
	second := recordRevenue(t, ctx, contract.ID, 4200)

	if second.ID != first.ID {
		t.Fatalf("rerecorded month got id %d, first was %d", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed from %s to %s", first.CreatedAt, second.CreatedAt)
	}
	if !second.TotalRevenue.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("revenue not updated: %s", second.TotalRevenue)
	}

	rows, err := models.ListPerformance(ctx, &driver.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one performance row, got %d (err %v)", len(rows), err)
	}

	var histories int64
	config.GetDB().WithContext(ctx).Model(&models.History{}).
		Where("reference_id = ? AND description LIKE ?", first.ID, "recorded performance for%").
		Count(&histories)
	if histories != 2 {
		t.Fatalf("expected both recordings in history of row %d, got %d", first.ID, histories)
	}
}

func testIncomeAnalytics(t *testing.T) {
	ctx, company := ownerContext(t, "Analytics Fleet")
	driver := createDriver(t, ctx)
	vehicle, err := models.CreateVehicle(ctx, &models.NewVehicle{
		UserId:       &driver.ID,
		Make:         "Toyota",
		Model:        "Prius",
		Year:         2021,
		LicensePlate: "AN-1",
	})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	sunday := time.Date(2024, time.March, 10, 9, 15, 0, 0, time.UTC)
	recordIncome(t, ctx, driver.ID, &vehicle.ID, "30", sunday)
	recordIncome(t, ctx, driver.ID, &vehicle.ID, "50", sunday.Add(20*time.Minute))
	recordIncome(t, ctx, driver.ID, nil, "70", sunday.AddDate(0, 0, 1).Add(5*time.Hour))

	scope := finance.CompanyScope(company.ID)
	weekdays, hours, err := models.IncomeTimeBuckets(ctx, scope, time.UTC)
	if err != nil {
		t.Fatalf("IncomeTimeBuckets: %v", err)
	}
	analysis := finance.AnalyzeTimes(weekdays, hours)
	if len(analysis.DailyPatterns) != 2 || analysis.DailyPatterns[0].Day != "Sunday" || analysis.DailyPatterns[0].Trips != 2 {
		t.Fatalf("daily patterns %+v", analysis.DailyPatterns)
	}
	if !analysis.DailyPatterns[0].AvgIncome.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("sunday average %s", analysis.DailyPatterns[0].AvgIncome)
	}
	if len(analysis.HourlyPatterns) != 2 || analysis.HourlyPatterns[0].Hour != 9 || analysis.HourlyPatterns[1].Hour != 14 {
		t.Fatalf("hourly patterns %+v", analysis.HourlyPatterns)
	}

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	days, err := models.IncomeByDay(ctx, scope, from, to, time.UTC)
	if err != nil {
		t.Fatalf("IncomeByDay: %v", err)
	}
	best := finance.BestIncomeDays(days, finance.BestDaysLimit)
	if len(best) != 2 || best[0].Date != "2024-03-10" || best[0].Trips != 2 || !best[0].Income.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("best days %+v", best)
	}

	vehicles, err := models.IncomeByVehicle(ctx, scope, from, to)
	if err != nil {
		t.Fatalf("IncomeByVehicle: %v", err)
	}
	ranked := finance.RankVehicles(vehicles)
	if len(ranked) != 1 || ranked[0].Vehicle != "Toyota Prius (AN-1)" || ranked[0].Trips != 2 {
		t.Fatalf("vehicles %+v", ranked)
	}
	if !ranked[0].AverageTripValue.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("vehicle average %s", ranked[0].AverageTripValue)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fleet-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fleet-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=fleet_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// e.g. "127.0.0.1:49154\n"
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
