package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

type Resource interface {
	GetCompanyId() string
}

// first find in redis, then in db, using ctx's company_id in WHERE, cache result
// (may return RecordNotFound error)
func GetResource[T Resource](ctx context.Context, id int) (*T, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchModel[T](ctx, companyId, id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	} else if (*result).GetCompanyId() != companyId {
		return nil, errors.New("cannot access resource owned by other company")
	}

	return result, nil
}

// list all resources of ctx's company, redis or db, cache result
func ListAllResource[T any](ctx context.Context, orders ...string) ([]*T, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}

	results, err := utils.RetrieveRedisList[T](companyId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		var model T
		dbCtx := config.GetDB().WithContext(ctx).Model(&model).Where("company_id = ?", companyId)
		for _, order := range orders {
			dbCtx = dbCtx.Order(order)
		}
		if err = dbCtx.Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[T](results, companyId); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func ToggleActiveModel[T RedisCleaner](ctx context.Context, companyId string, id int, isActive bool) (*T, error) {

	var result T
	db := config.GetDB()

	if err := db.WithContext(ctx).Where("company_id = ?", companyId).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	tx := db.WithContext(ctx).Begin()
	Tx := tx.Model(&result).UpdateColumn("is_active", isActive)
	if Tx.Error != nil {
		tx.Rollback()
		return nil, Tx.Error
	}

	referenceType := Tx.Statement.Table
	actionType := "*INACTIVE*"
	if isActive {
		actionType = "*ACTIVE*"
	}

	if err := createHistory(tx, actionType, id, referenceType, nil, nil, "toggled "+utils.GetTypeName[T]()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(result); err != nil {
		return nil, err
	}
	return &result, nil
}
