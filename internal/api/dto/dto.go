// Package dto decodes request bodies into the canonical inputs of the core
// packages. Legacy snake_case field names are translated here and nowhere else.
package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tajious/ejare/internal/contract"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/notify"
	"github.com/tajious/ejare/internal/report"
	"github.com/tajious/ejare/internal/validation"
)

// legacyAliases maps old field names to their canonical camelCase names.
var legacyAliases = map[string]string{
	"tenant_name":          "tenantName",
	"tenant_email":         "tenantEmail",
	"tenant_phone":         "tenantPhone",
	"tenant_national_id":   "tenantNationalId",
	"tenantNationalID":     "tenantNationalId",
	"landlord_name":        "landlordName",
	"landlord_email":       "landlordEmail",
	"landlord_phone":       "landlordPhone",
	"landlord_national_id": "landlordNationalId",
	"landlordNationalID":   "landlordNationalId",
	"property_address":     "propertyAddress",
	"property_type":        "propertyType",
	"property_size":        "propertySize",
	"rent_amount":          "rentAmount",
	"monthly_rent":         "rentAmount",
	"start_date":           "startDate",
	"end_date":             "endDate",
	"national_id_image":    "nationalIdImage",
	"contract_number":      "contractNumber",
	"access_code":          "accessCode",
	"contract_id":          "contractId",
}

var amountFields = map[string]bool{
	"rentAmount": true,
	"deposit":    true,
	"amount":     true,
}

// updatableFields are the canonical names the generic update accepts.
var updatableFields = map[string]bool{
	"tenantName": true, "tenantEmail": true, "tenantPhone": true, "tenantNationalId": true,
	"landlordName": true, "landlordEmail": true, "landlordPhone": true, "landlordNationalId": true,
	"propertyAddress": true, "propertyType": true, "propertySize": true,
	"rentAmount": true, "deposit": true, "startDate": true, "endDate": true, "description": true,
}

func invalidBody(err error) error {
	return apperrors.Wrap(apperrors.CodeValidation, err, "بدنه درخواست نامعتبر است")
}

// canonicalize decodes a JSON object and renames legacy keys. When both the
// legacy and the canonical key are present the canonical one wins. Amount
// fields are parsed to integers and other scalars are coerced to strings.
func canonicalize(body []byte) (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, invalidBody(err)
	}

	out := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		if _, isLegacy := legacyAliases[key]; !isLegacy {
			out[key] = value
		}
	}
	for key, value := range raw {
		if canonical, isLegacy := legacyAliases[key]; isLegacy {
			if _, exists := out[canonical]; !exists {
				out[canonical] = value
			}
		}
	}

	for key, value := range out {
		if isNull(value) {
			continue
		}
		if amountFields[key] {
			n, err := decodeAmount(value)
			if err != nil {
				return nil, apperrors.New(apperrors.CodeValidation, "مبلغ نامعتبر است").
					WithDetails(map[string]string{key: "amount"})
			}
			out[key] = json.RawMessage(decimal.NewFromInt(n).String())
			continue
		}
		if key != "version" && len(value) > 0 && (value[0] == '-' || (value[0] >= '0' && value[0] <= '9')) {
			quoted, _ := json.Marshal(string(value))
			out[key] = quoted
		}
	}
	return out, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

func decodeAmount(value json.RawMessage) (int64, error) {
	var s string
	if value[0] == '"' {
		if err := json.Unmarshal(value, &s); err != nil {
			return 0, err
		}
	} else {
		s = string(value)
	}
	return ParseAmount(s)
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount reads a whole rial amount. Persian and Arabic-Indic digits and
// thousands separators are accepted; fractions are rejected.
func ParseAmount(s string) (int64, error) {
	s = validation.NormalizeDigits(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", "٬", "", "،", "", " ", "", "_", "", "٫", ".").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errFraction
	}
	if d.GreaterThan(maxAmount) || d.LessThan(maxAmount.Neg()) {
		return 0, errOverflow
	}
	return d.IntPart(), nil
}

var (
	errFraction = apperrors.New(apperrors.CodeValidation, "amount must be a whole number")
	errOverflow = apperrors.New(apperrors.CodeValidation, "amount out of range")
)

func decodeInto(fields map[string]json.RawMessage, dst any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return invalidBody(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidBody(err)
	}
	return nil
}

func DecodeCreateContract(body []byte) (contract.CreateInput, error) {
	var in contract.CreateInput
	fields, err := canonicalize(body)
	if err != nil {
		return in, err
	}
	err = decodeInto(fields, &in)
	return in, err
}

// DecodeUpdateContract keeps only allow-listed fields. Anything else, such as
// status or signature, is dropped, and a body with no allowed field is rejected.
func DecodeUpdateContract(body []byte) (contract.UpdateInput, error) {
	var in contract.UpdateInput
	fields, err := canonicalize(body)
	if err != nil {
		return in, err
	}

	allowed := map[string]json.RawMessage{}
	for key, value := range fields {
		if updatableFields[key] && !isNull(value) {
			allowed[key] = value
		}
	}
	if len(allowed) == 0 {
		return in, apperrors.New(apperrors.CodeValidation, "هیچ فیلد قابل ویرایشی ارسال نشده است")
	}
	if v, ok := fields["version"]; ok {
		allowed["version"] = v
	}
	err = decodeInto(allowed, &in)
	return in, err
}

func DecodeSign(body []byte) (contract.SignInput, error) {
	var in contract.SignInput
	fields, err := canonicalize(body)
	if err != nil {
		return in, err
	}
	err = decodeInto(fields, &in)
	return in, err
}

func DecodeLogin(body []byte) (models.LoginRequest, error) {
	var req models.LoginRequest
	fields, err := canonicalize(body)
	if err != nil {
		return req, err
	}
	err = decodeInto(fields, &req)
	return req, err
}

func DecodeExpense(body []byte) (report.ExpenseInput, error) {
	var in report.ExpenseInput
	fields, err := canonicalize(body)
	if err != nil {
		return in, err
	}
	err = decodeInto(fields, &in)
	return in, err
}

// DecodeSettings accepts either a list of channel updates or an object keyed
// by channel name.
func DecodeSettings(body []byte) ([]notify.SettingsUpdate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, invalidBody(nil)
	}
	var list []notify.SettingsUpdate
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, invalidBody(err)
		}
	} else {
		var keyed map[models.Channel]notify.SettingsUpdate
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, invalidBody(err)
		}
		for ch, u := range keyed {
			u.Channel = ch
			list = append(list, u)
		}
	}
	for _, u := range list {
		if err := validation.ValidateStruct(u); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "تنظیمات نامعتبر است").
				WithDetails(validation.Fields(err))
		}
	}
	return list, nil
}
