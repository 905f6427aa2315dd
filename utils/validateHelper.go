package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
)

// ValidateResourceId returns ErrorRecordNotFound unless id exists for the company.
func ValidateResourceId[T any](ctx context.Context, companyId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, companyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ResourceCountWhere counts rows WHERE company_id = ? AND condition.
// companyId may be blank for admin callers.
func ResourceCountWhere[T any](ctx context.Context, companyId string, condition string, value ...interface{}) (int64, error) {
	var model T
	dbCtx := config.GetDB().WithContext(ctx).Model(&model)
	if companyId != "" {
		dbCtx = dbCtx.Where("company_id = ?", companyId)
	}
	var count int64
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FetchModel loads id scoped to companyId, mapping any failure to ErrorRecordNotFound.
func FetchModel[T any](ctx context.Context, companyId string, id int) (*T, error) {
	var result T
	err := config.GetDB().WithContext(ctx).
		Where("company_id = ?", companyId).
		First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}
