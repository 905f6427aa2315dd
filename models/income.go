package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Income is one trip or payout recorded by a driver. Each row counts as one trip.
// Rows carry no company_id; company scope goes through the owning user.
type Income struct {
	ID              int             `gorm:"primary_key" json:"id"`
	UserId          int             `gorm:"index:idx_income_user_date,priority:1;not null" json:"user_id"`
	VehicleId       *int            `gorm:"index" json:"vehicle_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Platform        string          `gorm:"size:50" json:"platform"`
	TripType        string          `gorm:"size:50" json:"trip_type"`
	DistanceKm      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"distance_km"`
	DurationMinutes int             `gorm:"default:0" json:"duration_minutes"`
	StartLocation   string          `gorm:"size:255" json:"start_location"`
	EndLocation     string          `gorm:"size:255" json:"end_location"`
	Notes           string          `gorm:"type:text" json:"notes"`
	DateRecorded    time.Time       `gorm:"index:idx_income_user_date,priority:2;not null" json:"date_recorded"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewIncome struct {
	UserId          *int            `json:"user_id"`
	VehicleId       *int            `json:"vehicle_id"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Platform        string          `json:"platform" binding:"max=50"`
	TripType        string          `json:"trip_type" binding:"max=50"`
	DistanceKm      decimal.Decimal `json:"distance_km"`
	DurationMinutes int             `json:"duration_minutes" binding:"gte=0"`
	StartLocation   string          `json:"start_location"`
	EndLocation     string          `json:"end_location"`
	Notes           string          `json:"notes"`
	DateRecorded    *time.Time      `json:"date_recorded"`
}

func (i Income) GetId() int {
	return i.ID
}

func (i Income) GetCursor() string {
	return i.DateRecorded.Format(cursorTimeLayout)
}

// LedgerFilter narrows income and expense listings.
type LedgerFilter struct {
	UserId    *int       `form:"user_id"`
	VehicleId *int       `form:"vehicle_id"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Limit     int        `form:"limit"`
	After     *string    `form:"after"`
}

// companyUsers restricts a ledger table to rows owned by users of companyId.
func companyUsers(db *gorm.DB, companyId string) *gorm.DB {
	return db.Where("user_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
		Model(&User{}).Select("id").Where("company_id = ?", companyId))
}

// ledgerOwner resolves whose record is written: drivers always write their own,
// owners and managers may write for a driver of the company.
func ledgerOwner(ctx context.Context, companyId string, requested *int) (int, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return 0, utils.ErrorUserRequired
	}
	if requested == nil || *requested == 0 || *requested == userId {
		return userId, nil
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	if !UserRole(role).HasPermission(PermissionManageDrivers) {
		return 0, utils.ErrorPermissionDenied
	}
	count, err := utils.ResourceCountWhere[User](ctx, companyId, "id = ?", *requested)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrInvalidDriver
	}
	return *requested, nil
}

func validateLedgerVehicle(ctx context.Context, companyId string, vehicleId *int) error {
	if vehicleId == nil || *vehicleId == 0 {
		return nil
	}
	if err := utils.ValidateResourceId[Vehicle](ctx, companyId, *vehicleId); err != nil {
		return fmt.Errorf("%w: vehicle not found", ErrInvalidInput)
	}
	return nil
}

func applyLedgerFilter(dbCtx *gorm.DB, ctx context.Context, companyId string, filter LedgerFilter) *gorm.DB {
	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) == UserRoleDriver {
		userId, _ := utils.GetUserIdFromContext(ctx)
		dbCtx = dbCtx.Where("user_id = ?", userId)
	} else {
		dbCtx = companyUsers(dbCtx, companyId)
		if filter.UserId != nil && *filter.UserId > 0 {
			dbCtx = dbCtx.Where("user_id = ?", *filter.UserId)
		}
	}
	if filter.VehicleId != nil && *filter.VehicleId > 0 {
		dbCtx = dbCtx.Where("vehicle_id = ?", *filter.VehicleId)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("date_recorded >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("date_recorded < ?", filter.To.AddDate(0, 0, 1))
	}
	return dbCtx
}

func CreateIncome(ctx context.Context, input *NewIncome) (*Income, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	ownerId, err := ledgerOwner(ctx, companyId, input.UserId)
	if err != nil {
		return nil, err
	}
	if err := validateLedgerVehicle(ctx, companyId, input.VehicleId); err != nil {
		return nil, err
	}
	recorded := time.Now().UTC()
	if input.DateRecorded != nil {
		recorded = input.DateRecorded.UTC()
	}

	income := Income{
		UserId:          ownerId,
		VehicleId:       input.VehicleId,
		Amount:          input.Amount,
		Platform:        input.Platform,
		TripType:        input.TripType,
		DistanceKm:      input.DistanceKm,
		DurationMinutes: input.DurationMinutes,
		StartLocation:   input.StartLocation,
		EndLocation:     input.EndLocation,
		Notes:           input.Notes,
		DateRecorded:    recorded,
	}
	if err := config.GetDB().WithContext(ctx).Create(&income).Error; err != nil {
		return nil, err
	}
	if err := RemoveLedgerCache(ctx, companyId, ownerId, recorded); err != nil {
		return nil, err
	}
	return &income, nil
}

func PaginateIncomes(ctx context.Context, filter LedgerFilter) (*Connection[Income], error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := applyLedgerFilter(config.GetDB().WithContext(ctx).Model(&Income{}), ctx, companyId, filter)
	edges, pageInfo, err := FetchPageCompositeCursor[Income](dbCtx, PageSize(filter.Limit), filter.After, "date_recorded", "<")
	if err != nil {
		return nil, err
	}
	return &Connection[Income]{Edges: edges, PageInfo: pageInfo}, nil
}
