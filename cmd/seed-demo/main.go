// seed-demo registers a demo company with drivers, vehicles, contracts and
// six months of performance, income and expense data.
//
// Usage:
//
//	go run ./cmd/seed-demo -email=owner@demo.test -password=secret123 [-drivers=3]
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
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

const seedMonths = 6

var demoContracts = []struct {
	contractType finance.ContractType
	monthlyFee   int64
	commission   string
	minimum      int64
}{
	{finance.ContractTypeMonthlyRental, 800, "0", 0},
	{finance.ContractTypeCommissionOnly, 0, "25", 1200},
	{finance.ContractTypeHybrid, 400, "15", 0},
	{finance.ContractTypeLeaseToOwn, 950, "0", 0},
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	email := flag.String("email", "owner@demo.test", "Owner email")
	password := flag.String("password", "", "Owner password (min 8 chars)")
	companyName := flag.String("company", "Demo Taxi Fleet", "Company name")
	drivers := flag.Int("drivers", 3, "Number of drivers to create")
	flag.Parse()

	if len(*password) < 8 {
		fail("-password is required (min 8 chars)")
	}
	if *drivers < 1 || *drivers > 50 {
		fail("-drivers must be between 1 and 50")
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fail("database not initialized (config.GetDB returned nil)")
	}
	models.MigrateTable()

	company, owner, err := models.RegisterCompany(ctx, &models.NewRegistration{
		Company:   models.NewCompany{Name: *companyName, Timezone: "UTC"},
		Email:     *email,
		Password:  *password,
		FirstName: "Demo",
		LastName:  "Owner",
	})
	if err != nil {
		fail("failed to register company: %v", err)
	}
	ctx = utils.SystemContext(ctx, company.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserNameInContext(ctx, owner.FullName())
	ctx = utils.SetUserRoleInContext(ctx, string(owner.Role))

	now := time.Now().UTC()
	current := finance.PeriodOf(now)
	first := current.AddMonths(-seedMonths)
	domain := strings.SplitN(*email, "@", 2)
	suffix := "demo.test"
	if len(domain) == 2 {
		suffix = domain[1]
	}

	for i := 0; i < *drivers; i++ {
		// Stagger expiries so the compliance sweep has something to report.
		licenseExpiry := models.Date(now.AddDate(0, 0, 10+i*30))
		hireDate := models.Date(first.Start())
		driver, err := models.CreateDriver(ctx, &models.NewDriver{
			Email:         fmt.Sprintf("driver%d@%s", i+1, suffix),
			Password:      *password,
			FirstName:     "Driver",
			LastName:      fmt.Sprintf("%d", i+1),
			LicenseNumber: fmt.Sprintf("DL-%05d", i+1),
			LicenseExpiry: &licenseExpiry,
			HireDate:      &hireDate,
		})
		if err != nil {
			fail("failed to create driver %d: %v", i+1, err)
		}

		insuranceExpiry := models.Date(now.AddDate(0, 0, 20+i*15))
		registrationExpiry := models.Date(now.AddDate(0, 2, 0))
		vehicle, err := models.CreateVehicle(ctx, &models.NewVehicle{
			UserId:             &driver.ID,
			Make:               "Toyota",
			Model:              "Prius",
			Year:               2021,
			LicensePlate:       fmt.Sprintf("TX-%04d", 1000+i),
			PurchasePrice:      decimal.NewFromInt(24000),
			CurrentMileage:     40000 + i*5000,
			FuelType:           "hybrid",
			InsuranceExpiry:    &insuranceExpiry,
			RegistrationExpiry: &registrationExpiry,
		})
		if err != nil {
			fail("failed to create vehicle for driver %d: %v", driver.ID, err)
		}

		terms := demoContracts[i%len(demoContracts)]
		contract, err := models.CreateContract(ctx, &models.NewContract{
			DriverId:         driver.ID,
			ContractType:     string(terms.contractType),
			StartDate:        models.Date(first.Start()),
			MonthlyFee:       decimal.NewFromInt(terms.monthlyFee),
			CommissionRate:   decimal.RequireFromString(terms.commission),
			MinimumGuarantee: decimal.NewFromInt(terms.minimum),
			BonusThreshold:   decimal.NewFromInt(5000),
			BonusRate:        decimal.NewFromInt(5),
			PaymentSchedule:  models.PaymentScheduleMonthly,
		})
		if err != nil {
			fail("failed to create contract for driver %d: %v", driver.ID, err)
		}

		for m := 0; m < seedMonths; m++ {
			period := first.AddMonths(m)
			revenue := decimal.NewFromInt(int64(3500 + 400*m + 250*i))
			if _, err := models.RecordPerformance(ctx, &models.NewDriverPerformance{
				ContractId:   contract.ID,
				Period:       period.String(),
				TotalRevenue: revenue,
				TotalTrips:   180 + 10*m,
				TotalHours:   decimal.NewFromInt(160),
				FuelCosts:    decimal.NewFromInt(300),
			}); err != nil {
				fail("failed to record performance %s: %v", period, err)
			}

			recorded := period.Start().AddDate(0, 0, 14)
			if _, err := models.CreateIncome(ctx, &models.NewIncome{
				UserId:       &driver.ID,
				VehicleId:    &vehicle.ID,
				Amount:       revenue,
				Platform:     "street",
				TripType:     "standard",
				DateRecorded: &recorded,
			}); err != nil {
				fail("failed to create income %s: %v", period, err)
			}
			if _, err := models.CreateExpense(ctx, &models.NewExpense{
				UserId:          &driver.ID,
				VehicleId:       &vehicle.ID,
				Amount:          decimal.NewFromInt(int64(450 + 20*m)),
				Category:        "fuel",
				Vendor:          "Demo Fuel",
				IsTaxDeductible: true,
				DateRecorded:    &recorded,
			}); err != nil {
				fail("failed to create expense %s: %v", period, err)
			}
		}
	}

	if _, err := models.CreateBudget(ctx, &models.NewBudget{
		Name:           fmt.Sprintf("%d budget", now.Year()),
		BudgetType:     models.BudgetTypeAnnual,
		PeriodStart:    models.Date(time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)),
		PeriodEnd:      models.Date(time.Date(now.Year(), 12, 31, 0, 0, 0, 0, time.UTC)),
		TargetRevenue:  decimal.NewFromInt(int64(*drivers) * 60000),
		TargetExpenses: decimal.NewFromInt(int64(*drivers) * 8000),
		TargetTrips:    int64(*drivers) * 2400,
		TargetDrivers:  int64(*drivers),
	}); err != nil {
		fail("failed to create budget: %v", err)
	}

	fmt.Printf("seeded company %s (%s) with %d drivers, owner %s\n", company.Name, company.ID, *drivers, owner.Email)
}
