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

type Vehicle struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CompanyId          string          `gorm:"size:64;index;not null" json:"company_id"`
	UserId             *int            `gorm:"index" json:"user_id"`
	Make               string          `gorm:"size:50;not null" json:"make" binding:"required"`
	Model              string          `gorm:"size:50;not null" json:"model" binding:"required"`
	Year               int             `gorm:"not null" json:"year" binding:"required"`
	Vin                *string         `gorm:"size:17;unique" json:"vin"`
	LicensePlate       string          `gorm:"size:20;not null" json:"license_plate" binding:"required"`
	Color              string          `gorm:"size:30" json:"color"`
	PurchaseDate       *time.Time      `gorm:"type:date" json:"purchase_date"`
	PurchasePrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	CurrentMileage     int             `json:"current_mileage"`
	FuelType           string          `gorm:"size:20" json:"fuel_type"`
	InsurancePolicy    string          `gorm:"size:50" json:"insurance_policy"`
	InsuranceExpiry    *time.Time      `gorm:"type:date;index" json:"insurance_expiry"`
	RegistrationExpiry *time.Time      `gorm:"type:date;index" json:"registration_expiry"`
	LastServiceDate    *time.Time      `gorm:"type:date" json:"last_service_date"`
	NextServiceDue     *time.Time      `gorm:"type:date;index" json:"next_service_due"`
	Status             VehicleStatus   `gorm:"size:20;not null;default:active" json:"status"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVehicle struct {
	UserId             *int            `json:"user_id"`
	Make               string          `json:"make" binding:"required,max=50"`
	Model              string          `json:"model" binding:"required,max=50"`
	Year               int             `json:"year" binding:"required,gte=1950,lte=2100"`
	Vin                string          `json:"vin" binding:"omitempty,len=17"`
	LicensePlate       string          `json:"license_plate" binding:"required,max=20"`
	Color              string          `json:"color"`
	PurchaseDate       *Date           `json:"purchase_date"`
	PurchasePrice      decimal.Decimal `json:"purchase_price"`
	CurrentMileage     int             `json:"current_mileage" binding:"gte=0"`
	FuelType           string          `json:"fuel_type"`
	InsurancePolicy    string          `json:"insurance_policy"`
	InsuranceExpiry    *Date           `json:"insurance_expiry"`
	RegistrationExpiry *Date           `json:"registration_expiry"`
	NextServiceDue     *Date           `json:"next_service_due"`
}

// Label is "Make Model (PLATE)", used in alert descriptions.
func (v Vehicle) Label() string {
	return fmt.Sprintf("%s %s (%s)", v.Make, v.Model, v.LicensePlate)
}

func (v Vehicle) GetCompanyId() string {
	return v.CompanyId
}

func (v Vehicle) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Vehicle](v.ID)
}

func (v Vehicle) RemoveAllRedis() error {
	return utils.RemoveRedisList[Vehicle](v.CompanyId)
}

func (input *NewVehicle) validate(ctx context.Context, companyId string) error {
	if input.UserId != nil && *input.UserId > 0 {
		count, err := utils.ResourceCountWhere[User](ctx, companyId, "id = ? AND role = ?", *input.UserId, UserRoleDriver)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrInvalidDriver
		}
	}
	if input.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: purchase price cannot be negative", ErrInvalidInput)
	}
	return nil
}

func CreateVehicle(ctx context.Context, input *NewVehicle) (*Vehicle, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	vehicle := Vehicle{
		CompanyId:          companyId,
		UserId:             input.UserId,
		Make:               input.Make,
		Model:              input.Model,
		Year:               input.Year,
		LicensePlate:       input.LicensePlate,
		Color:              input.Color,
		PurchaseDate:       DatePtr(input.PurchaseDate),
		PurchasePrice:      input.PurchasePrice,
		CurrentMileage:     input.CurrentMileage,
		FuelType:           input.FuelType,
		InsurancePolicy:    input.InsurancePolicy,
		InsuranceExpiry:    DatePtr(input.InsuranceExpiry),
		RegistrationExpiry: DatePtr(input.RegistrationExpiry),
		NextServiceDue:     DatePtr(input.NextServiceDue),
		Status:             VehicleStatusActive,
		IsActive:           utils.NewTrue(),
	}
	if input.Vin != "" {
		vin := input.Vin
		vehicle.Vin = &vin
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vehicle).Error; err != nil {
			if IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: duplicate vin", ErrAlreadyExists)
			}
			return err
		}
		return SaveHistoryCreate(tx, vehicle.ID, &vehicle, "added vehicle "+vehicle.Label())
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func GetVehicle(ctx context.Context, id int) (*Vehicle, error) {
	return GetResource[Vehicle](ctx, id)
}

func ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	return ListAllResource[Vehicle](ctx, "license_plate")
}

// CountActiveVehicles counts active vehicles of a company.
func CountActiveVehicles(ctx context.Context, companyId string) (int64, error) {
	return utils.ResourceCountWhere[Vehicle](ctx, companyId, "is_active = ?", true)
}

// ToggleVehicle activates or retires a vehicle.
func ToggleVehicle(ctx context.Context, id int, isActive bool) (*Vehicle, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	return ToggleActiveModel[Vehicle](ctx, companyId, id, isActive)
}
