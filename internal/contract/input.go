package contract

import (
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/validation"
)

// CreateInput is the canonical create payload. Amounts are whole rials.
type CreateInput struct {
	TenantName         string                `json:"tenantName" validate:"required,max=200"`
	TenantEmail        string                `json:"tenantEmail" validate:"required,email,max=254"`
	TenantPhone        string                `json:"tenantPhone" validate:"omitempty,max=32"`
	TenantNationalID   string                `json:"tenantNationalId" validate:"omitempty,nationalid"`
	LandlordName       string                `json:"landlordName" validate:"required,max=200"`
	LandlordEmail      string                `json:"landlordEmail" validate:"required,email,max=254"`
	LandlordPhone      string                `json:"landlordPhone" validate:"omitempty,max=32"`
	LandlordNationalID string                `json:"landlordNationalId" validate:"omitempty,nationalid"`
	PropertyAddress    string                `json:"propertyAddress" validate:"required,max=500"`
	PropertyType       string                `json:"propertyType" validate:"omitempty,max=100"`
	PropertySize       string                `json:"propertySize" validate:"omitempty,max=50"`
	RentAmount         int64                 `json:"rentAmount" validate:"gt=0"`
	Deposit            int64                 `json:"deposit" validate:"gte=0"`
	StartDate          string                `json:"startDate" validate:"required,ymd"`
	EndDate            string                `json:"endDate" validate:"required,ymd"`
	Description        string                `json:"description" validate:"omitempty,max=5000"`
	Status             models.ContractStatus `json:"status" validate:"omitempty,oneof=draft active"`
}

// UpdateInput carries only the fields an admin may edit. Nil means unchanged.
// Version, when non-zero, must match the stored version.
type UpdateInput struct {
	Version            int     `json:"version" validate:"gte=0"`
	TenantName         *string `json:"tenantName" validate:"omitnil,min=1,max=200"`
	TenantEmail        *string `json:"tenantEmail" validate:"omitnil,email,max=254"`
	TenantPhone        *string `json:"tenantPhone" validate:"omitempty,max=32"`
	TenantNationalID   *string `json:"tenantNationalId" validate:"omitempty,nationalid"`
	LandlordName       *string `json:"landlordName" validate:"omitnil,min=1,max=200"`
	LandlordEmail      *string `json:"landlordEmail" validate:"omitnil,email,max=254"`
	LandlordPhone      *string `json:"landlordPhone" validate:"omitempty,max=32"`
	LandlordNationalID *string `json:"landlordNationalId" validate:"omitempty,nationalid"`
	PropertyAddress    *string `json:"propertyAddress" validate:"omitnil,min=1,max=500"`
	PropertyType       *string `json:"propertyType" validate:"omitempty,max=100"`
	PropertySize       *string `json:"propertySize" validate:"omitempty,max=50"`
	RentAmount         *int64  `json:"rentAmount" validate:"omitnil,gt=0"`
	Deposit            *int64  `json:"deposit" validate:"omitnil,gte=0"`
	StartDate          *string `json:"startDate" validate:"omitnil,ymd"`
	EndDate            *string `json:"endDate" validate:"omitnil,ymd"`
	Description        *string `json:"description" validate:"omitempty,max=5000"`
}

// columns maps the set fields to their column names.
func (u UpdateInput) columns() map[string]any {
	out := map[string]any{}
	str := func(col string, v *string) {
		if v != nil {
			out[col] = *v
		}
	}
	str("tenant_name", u.TenantName)
	str("tenant_email", u.TenantEmail)
	str("tenant_phone", u.TenantPhone)
	str("tenant_national_id", u.TenantNationalID)
	str("landlord_name", u.LandlordName)
	str("landlord_email", u.LandlordEmail)
	str("landlord_phone", u.LandlordPhone)
	str("landlord_national_id", u.LandlordNationalID)
	str("property_address", u.PropertyAddress)
	str("property_type", u.PropertyType)
	str("property_size", u.PropertySize)
	str("description", u.Description)
	if u.StartDate != nil {
		out["start_date"] = validation.NormalizeDate(*u.StartDate)
	}
	if u.EndDate != nil {
		out["end_date"] = validation.NormalizeDate(*u.EndDate)
	}
	if u.RentAmount != nil {
		out["rent_amount"] = *u.RentAmount
	}
	if u.Deposit != nil {
		out["deposit"] = *u.Deposit
	}
	return out
}

type SignInput struct {
	Signature       string `json:"signature" validate:"required"`
	NationalIDImage string `json:"nationalIdImage"`
}

func validationError(err error) error {
	return apperrors.Wrap(apperrors.CodeValidation, err, "اطلاعات ارسالی نامعتبر است").
		WithDetails(validation.Fields(err))
}

func validate(v any) error {
	if err := validation.ValidateStruct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// checkPeriod requires end >= start. Both dates are normalised YYYY-MM-DD in
// the same calendar, so string order is date order.
func checkPeriod(start, end string) error {
	if end < start {
		return apperrors.New(apperrors.CodeValidation, "تاریخ پایان باید بعد از تاریخ شروع باشد").
			WithDetails(map[string]string{"endDate": "gtefield"})
	}
	return nil
}
