package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"15000000", 15000000, true},
		{"15,000,000", 15000000, true},
		{"۱۵٬۰۰۰٬۰۰۰", 15000000, true},
		{"١٢٣", 123, true},
		{" 42 ", 42, true},
		{"1e3", 1000, true},
		{"12.5", 0, false},
		{"۱۲٫۵", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCreateAcceptsLegacyNames(t *testing.T) {
	body := `{
		"tenant_name": "علی",
		"tenantEmail": "ali@example.com",
		"landlord_name": "رضا",
		"landlordName": "Reza",
		"rent_amount": "۱۵,۰۰۰,۰۰۰",
		"deposit": 100000000,
		"property_size": 120,
		"start_date": "1403/01/01"
	}`
	in, err := DecodeCreateContract([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "علی", in.TenantName)
	assert.Equal(t, "ali@example.com", in.TenantEmail)
	assert.Equal(t, "Reza", in.LandlordName, "canonical name wins over the legacy alias")
	assert.Equal(t, int64(15000000), in.RentAmount)
	assert.Equal(t, int64(100000000), in.Deposit)
	assert.Equal(t, "120", in.PropertySize)
	assert.Equal(t, "1403/01/01", in.StartDate)
}

func TestDecodeCreateRejectsFractionalAmount(t *testing.T) {
	_, err := DecodeCreateContract([]byte(`{"rentAmount": 10.5}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = DecodeCreateContract([]byte(`{not json`))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDecodeUpdate(t *testing.T) {
	in, err := DecodeUpdateContract([]byte(`{"rent_amount": "2,000", "status": "signed", "signature": "x", "version": 3}`))
	require.NoError(t, err)
	require.NotNil(t, in.RentAmount)
	assert.Equal(t, int64(2000), *in.RentAmount)
	assert.Equal(t, 3, in.Version)
	assert.Nil(t, in.TenantName)

	_, err = DecodeUpdateContract([]byte(`{"status": "signed", "version": 2}`))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = DecodeUpdateContract([]byte(`{}`))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = DecodeUpdateContract([]byte(`{"tenantName": null}`))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDecodeLoginAndSign(t *testing.T) {
	req, err := DecodeLogin([]byte(`{"contract_number": "RNT1", "access_code": 123456}`))
	require.NoError(t, err)
	assert.True(t, req.IsTenant())
	assert.Equal(t, "RNT1", req.ContractNumber)
	assert.Equal(t, "123456", req.AccessCode)

	sign, err := DecodeSign([]byte(`{"signature": "data:image/png;base64,AA", "national_id_image": "img"}`))
	require.NoError(t, err)
	assert.Equal(t, "img", sign.NationalIDImage)
}

func TestDecodeExpense(t *testing.T) {
	in, err := DecodeExpense([]byte(`{"amount": "۲۵۰٬۰۰۰", "category": "tax", "date": "2024-02-01", "contract_id": "c1"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(250000), in.Amount)
	assert.Equal(t, "c1", in.ContractID)
}

func TestDecodeSettings(t *testing.T) {
	list, err := DecodeSettings([]byte(`{"telegram": {"enabled": true, "config": {"chatId": "42"}}}`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ChannelTelegram, list[0].Channel)
	require.NotNil(t, list[0].Enabled)
	assert.True(t, *list[0].Enabled)

	list, err = DecodeSettings([]byte(`[{"channel": "email", "config": {"host": "smtp"}}]`))
	require.NoError(t, err)
	assert.Equal(t, "smtp", list[0].Config["host"])

	_, err = DecodeSettings([]byte(`[{"channel": "fax"}]`))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
