package utils

import "errors"

var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorCompanyRequired  = errors.New("company id is required")
	ErrorUserRequired     = errors.New("user id is required")
	ErrorLockNotObtained  = errors.New("another run is in progress for this company")
	ErrorServiceNotReady  = errors.New("service not ready")
	ErrorPermissionDenied = errors.New("permission denied")
)
