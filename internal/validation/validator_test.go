package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNationalID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1234567891", true},
		{"0000000019", true},
		{"۱۲۳۴۵۶۷۸۹۱", true},
		{"1234567890", false},
		{"1111111111", false},
		{"123456789", false},
		{"12345678a1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNationalID(tt.in), "input %q", tt.in)
	}
}

func TestIsDate(t *testing.T) {
	assert.True(t, IsDate("2024-01-01"))
	assert.True(t, IsDate("1403/01/05"))
	assert.True(t, IsDate("۱۴۰۳/۱۲/۳۰"))
	assert.False(t, IsDate("2024-02-30"))
	assert.False(t, IsDate("1403-13-01"))
	assert.False(t, IsDate("2024-1-1"))
	assert.False(t, IsDate("tomorrow"))
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "09121234567", NormalizeDigits("۰۹۱۲۱۲۳۴۵۶۷"))
	assert.Equal(t, "123", NormalizeDigits("١٢٣"))
	assert.Equal(t, "abc", NormalizeDigits("abc"))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		TenantNationalID string `json:"tenantNationalId" validate:"omitempty,nationalid"`
		StartDate        string `json:"startDate" validate:"required,ymd"`
	}

	err := ValidateStruct(payload{TenantNationalID: "1234567890"})
	require.Error(t, err)

	fields := Fields(err)
	assert.Equal(t, "nationalid", fields["tenantNationalId"])
	assert.Equal(t, "required", fields["startDate"])

	assert.NoError(t, ValidateStruct(payload{StartDate: "2024-01-01"}))
}
