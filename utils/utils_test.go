package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := JwtGenerate(12, "company-1", "manager")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ID != 12 || claims.CompanyId != "company-1" || claims.Role != "manager" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	t.Setenv("API_SECRET", "other-secret")
	if _, err := JwtValidate(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "correct horse" {
		t.Fatalf("password stored in clear")
	}
	if err := ComparePassword(hashed, "correct horse"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hashed, "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestSystemContext(t *testing.T) {
	ctx := SystemContext(context.Background(), "c1")
	companyId, _ := GetCompanyIdFromContext(ctx)
	userId, ok := GetUserIdFromContext(ctx)
	name, _ := GetUserNameFromContext(ctx)
	if companyId != "c1" || !ok || userId != 0 || name != "System" {
		t.Fatalf("got %q %d %q", companyId, userId, name)
	}
}

func TestGCSObjectName(t *testing.T) {
	t.Setenv("GCS_BUCKET", "fleet-reports")
	name := "reports/c1/5/payroll_20240301T080000.xlsx"
	got, ok := GCSObjectName(GCSObjectURL("fleet-reports", name))
	if !ok || got != name {
		t.Fatalf("got %q %v", got, ok)
	}
	if _, ok := GCSObjectName("https://storage.googleapis.com/other-bucket/" + name); ok {
		t.Fatalf("url of another bucket accepted")
	}
	if _, ok := GCSObjectName(""); ok {
		t.Fatalf("empty url accepted")
	}

	t.Setenv("GCS_BUCKET", "")
	if StorageConfigured() {
		t.Fatalf("storage should be disabled without a bucket")
	}
}

func TestProcessValidationErrors(t *testing.T) {
	type input struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}
	err := validator.New().Struct(input{Email: "nope"})
	fields := ProcessValidationErrors(fmt.Errorf("bind: %w", err))
	if fields["Email"] != "email" || fields["Name"] != "required" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if ProcessValidationErrors(errors.New("plain")) != nil {
		t.Fatalf("non-validator errors should map to nil")
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	got, err := FormatPhoneNumber("+14155552671", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+14155552671" {
		t.Fatalf("got %s", got)
	}
	if err := ValidatePhoneNumber("123", "US"); err == nil {
		t.Fatalf("short number accepted")
	}
}
