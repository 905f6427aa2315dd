package models

import (
	"log"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &User{}, &Vehicle{},
		&Income{}, &Expense{},
		&EmploymentContract{}, &ContractPayment{}, &DriverPerformance{},
		&MaintenanceRecord{}, &ComplianceAlert{},
		&Budget{}, &ScheduledReport{},
		&Notification{},
		&History{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
