package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID               int        `gorm:"primary_key" json:"id"`
	CompanyId        string     `gorm:"size:64;index" json:"company_id"`
	Email            string     `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Password         string     `gorm:"size:255;not null" json:"-"`
	FirstName        string     `gorm:"size:50;not null" json:"first_name" binding:"required"`
	LastName         string     `gorm:"size:50;not null" json:"last_name" binding:"required"`
	Phone            string     `gorm:"size:20" json:"phone"`
	LicenseNumber    string     `gorm:"size:50" json:"license_number"`
	LicenseExpiry    *time.Time `gorm:"type:date;index" json:"license_expiry"`
	Role             UserRole   `gorm:"size:20;not null;default:driver;index" json:"role"`
	IsActive         *bool      `gorm:"not null;default:true" json:"is_active"`
	HireDate         *time.Time `gorm:"type:date" json:"hire_date"`
	EmergencyContact string     `gorm:"size:100" json:"emergency_contact"`
	EmergencyPhone   string     `gorm:"size:20" json:"emergency_phone"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDriver struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	FirstName        string `json:"first_name" binding:"required,max=50"`
	LastName         string `json:"last_name" binding:"required,max=50"`
	Phone            string `json:"phone"`
	LicenseNumber    string `json:"license_number"`
	LicenseExpiry    *Date  `json:"license_expiry"`
	HireDate         *Date  `json:"hire_date"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
}

type NewRegistration struct {
	Company   NewCompany `json:"company" binding:"required"`
	Email     string     `json:"email" binding:"required,email"`
	Password  string     `json:"password" binding:"required,min=8"`
	FirstName string     `json:"first_name" binding:"required,max=50"`
	LastName  string     `json:"last_name" binding:"required,max=50"`
	Phone     string     `json:"phone"`
}

type LoginInfo struct {
	Token       string   `json:"token"`
	UserId      int      `json:"user_id"`
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	CompanyId   string   `json:"company_id"`
	CompanyName string   `json:"company_name"`
	Timezone    string   `json:"timezone"`
}

/*
caches:
	User:$email
	Token:$token     -> email
	Tokens:$email    -> set of tokens
*/

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) GetCompanyId() string {
	return u.CompanyId
}

func (u User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + u.Email)
}

func (u User) RemoveAllRedis() error {
	return utils.RemoveRedisList[User](u.CompanyId)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func formatOptionalPhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	if err := utils.ValidatePhoneNumber(phone, ""); err != nil {
		return "", fmt.Errorf("%w: invalid phone number: %v", ErrInvalidInput, err)
	}
	return utils.FormatPhoneNumber(phone, "")
}

// RegisterCompany creates a company together with its owner account.
func RegisterCompany(ctx context.Context, input *NewRegistration) (*Company, *User, error) {
	company, err := input.Company.toCompany()
	if err != nil {
		return nil, nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}
	phone, err := formatOptionalPhone(input.Phone)
	if err != nil {
		return nil, nil, err
	}
	owner := User{
		CompanyId: company.ID,
		Email:     normalizeEmail(input.Email),
		Password:  hashed,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     phone,
		Role:      UserRoleOwner,
		IsActive:  utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		if err := tx.Create(&owner).Error; err != nil {
			if IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: email is already registered", ErrAlreadyExists)
			}
			return err
		}
		historyCtx := utils.SetUserNameInContext(utils.SetUserIdInContext(utils.SetCompanyIdInContext(ctx, company.ID), owner.ID), owner.FullName())
		return SaveHistoryCreate(tx.WithContext(historyCtx), owner.ID, &owner, "registered company "+company.Name)
	})
	if err != nil {
		return nil, nil, err
	}
	return company, &owner, nil
}

// CreateDriver adds a driver account to the caller's company.
func CreateDriver(ctx context.Context, input *NewDriver) (*User, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	phone, err := formatOptionalPhone(input.Phone)
	if err != nil {
		return nil, err
	}
	emergencyPhone, err := formatOptionalPhone(input.EmergencyPhone)
	if err != nil {
		return nil, err
	}

	driver := User{
		CompanyId:        companyId,
		Email:            normalizeEmail(input.Email),
		Password:         hashed,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Phone:            phone,
		LicenseNumber:    input.LicenseNumber,
		LicenseExpiry:    DatePtr(input.LicenseExpiry),
		Role:             UserRoleDriver,
		IsActive:         utils.NewTrue(),
		HireDate:         DatePtr(input.HireDate),
		EmergencyContact: input.EmergencyContact,
		EmergencyPhone:   emergencyPhone,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&driver).Error; err != nil {
			if IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: email is already registered", ErrAlreadyExists)
			}
			return err
		}
		return SaveHistoryCreate(tx, driver.ID, &driver, "created driver "+driver.FullName())
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// UpdateLicense records a renewed driver licence.
func UpdateLicense(ctx context.Context, driverId int, licenseNumber string, expiry Date) (*User, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var driver User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("company_id = ? AND role = ?", companyId, UserRoleDriver).First(&driver, driverId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	before := driver
	expiryDate := DatePtr(&expiry)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&driver).Updates(map[string]interface{}{
			"license_number": licenseNumber,
			"license_expiry": expiryDate,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, driver.ID, &before, "renewed licence of "+driver.FullName())
	})
	if err != nil {
		return nil, err
	}
	driver.LicenseNumber = licenseNumber
	driver.LicenseExpiry = expiryDate
	if err := RemoveRedisBoth(driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// ListDrivers returns the company's drivers, cached per company.
func ListDrivers(ctx context.Context, activeOnly bool) ([]*User, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	results, err := utils.RetrieveRedisList[User](companyId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		if err := config.GetDB().WithContext(ctx).
			Where("company_id = ? AND role = ?", companyId, UserRoleDriver).
			Order("first_name, last_name").
			Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[User](results, companyId); err != nil {
			return nil, err
		}
	}
	if !activeOnly {
		return results, nil
	}
	active := make([]*User, 0, len(results))
	for _, u := range results {
		if u.IsActive != nil && *u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	email = normalizeEmail(email)
	var user User

	// the cached copy has no password hash, always read the row
	err := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).
		Where("email = ?", email).Take(&user).Error
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, ErrUserDisabled
	}

	token, err := utils.JwtGenerate(user.ID, user.CompanyId, string(user.Role))
	if err != nil {
		return nil, err
	}
	result := LoginInfo{
		Token:     token,
		UserId:    user.ID,
		Name:      user.FullName(),
		Role:      user.Role,
		CompanyId: user.CompanyId,
	}
	if user.CompanyId != "" {
		company, err := GetCompany(ctx, user.CompanyId)
		if err != nil {
			return nil, err
		}
		result.CompanyName = company.Name
		result.Timezone = company.Timezone
	}

	// store session in redis
	if err := config.SetRedisObject("User:"+email, &user, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, email, utils.TokenLifespan()); err != nil {
		return nil, err
	}
	if err := config.AddRedisSet("Tokens:"+email, token); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout destroys the current session.
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

// GetUserByEmail is used by the session middleware; it is cached under User:$email.
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+email, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	if err := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).
		Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject("User:"+email, &user, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	return &user, nil
}
