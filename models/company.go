package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/google/uuid"
)

type Company struct {
	ID                 string    `gorm:"primary_key;size:64" json:"id"`
	Name               string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	RegistrationNumber string    `gorm:"size:50" json:"registration_number"`
	Address            string    `gorm:"type:text" json:"address"`
	City               string    `gorm:"size:50" json:"city"`
	Country            string    `gorm:"size:50" json:"country"`
	Phone              string    `gorm:"size:20" json:"phone"`
	Email              string    `gorm:"size:100" json:"email"`
	TaxNumber          string    `gorm:"size:50" json:"tax_number"`
	Timezone           string    `gorm:"size:50" json:"timezone"`
	SubscriptionTier   string    `gorm:"size:20;default:starter" json:"subscription_tier"`
	SubscriptionStatus string    `gorm:"size:20;index;default:active" json:"subscription_status"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name               string `json:"name" binding:"required,max=100"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address"`
	City               string `json:"city"`
	Country            string `json:"country"`
	Phone              string `json:"phone"`
	Email              string `json:"email" binding:"omitempty,email"`
	TaxNumber          string `json:"tax_number"`
	Timezone           string `json:"timezone"`
}

const companySubscriptionActive = "active"

func (c Company) GetCompanyId() string {
	return c.ID
}

func (input *NewCompany) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, ""); err != nil {
			return fmt.Errorf("%w: invalid phone number: %v", ErrInvalidInput, err)
		}
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return fmt.Errorf("%w: invalid timezone", ErrInvalidInput)
		}
	}
	return nil
}

func (input *NewCompany) toCompany() (*Company, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	phone := input.Phone
	if phone != "" {
		formatted, err := utils.FormatPhoneNumber(phone, "")
		if err != nil {
			return nil, err
		}
		phone = formatted
	}
	timezone := input.Timezone
	if timezone == "" {
		timezone = utils.DefaultTimezone
	}
	return &Company{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(input.Name),
		RegistrationNumber: input.RegistrationNumber,
		Address:            input.Address,
		City:               input.City,
		Country:            input.Country,
		Phone:              phone,
		Email:              input.Email,
		TaxNumber:          input.TaxNumber,
		Timezone:           timezone,
		SubscriptionTier:   "starter",
		SubscriptionStatus: companySubscriptionActive,
		IsActive:           utils.NewTrue(),
	}, nil
}

// GetCompany loads a company by id, cached in redis.
func GetCompany(ctx context.Context, companyId string) (*Company, error) {
	if companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var company Company
	exists, err := config.GetRedisObject("Company:"+companyId, &company)
	if err != nil {
		return nil, err
	}
	if exists {
		return &company, nil
	}
	if err := config.GetDB().WithContext(ctx).Where("id = ?", companyId).First(&company).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject("Company:"+companyId, &company, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c Company) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Company:" + c.ID)
}

func (c Company) RemoveAllRedis() error {
	return nil
}

// ActiveCompanyIds lists companies with an active subscription, used by the sweeps.
func ActiveCompanyIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).
		Model(&Company{}).
		Where("subscription_status = ? AND is_active = ?", companySubscriptionActive, true).
		Order("created_at").
		Pluck("id", &ids).Error
	return ids, err
}

// CompanyLocation returns the company's timezone, falling back to the default zone.
func CompanyLocation(ctx context.Context, companyId string) *time.Location {
	timezone := utils.DefaultTimezone
	if company, err := GetCompany(ctx, companyId); err == nil && company.Timezone != "" {
		timezone = company.Timezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CompanyToday is the current calendar date in the company's timezone, as a UTC midnight.
func CompanyToday(ctx context.Context, companyId string, now time.Time) time.Time {
	local := now.In(CompanyLocation(ctx, companyId))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
