package models

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrActiveContractExists = errors.New("driver already has an active contract, terminate existing contract first")
	ErrContractNotActive    = errors.New("contract is not active")
	ErrInvalidDriver        = errors.New("invalid driver selected")
	ErrDuplicatePayment     = errors.New("payment already recorded for this contract and period")
	ErrPaymentNotPending    = errors.New("payment is not pending")
	ErrAlertNotActive       = errors.New("alert is not active")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserDisabled         = errors.New("user is disabled")
	ErrInvalidBudgetPeriod  = errors.New("budget period end must not be before start")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyExists        = errors.New("already exists")
)

// IsDuplicateKeyError reports a MySQL unique constraint violation (1062).
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
