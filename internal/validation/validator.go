package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	Validator = newValidator()

	ymdPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Years below this are read as Jalali.
const jalaliYearCutoff = 1700

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
		return IsNationalID(fl.Field().String())
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	return v
}

func ValidateStruct(s interface{}) error {
	return Validator.Struct(s)
}

// Fields flattens a validator error into field -> failed tag.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// NormalizeDigits maps Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// IsNationalID checks the 10-digit Iranian national code and its check digit.
func IsNationalID(value string) bool {
	code := NormalizeDigits(strings.TrimSpace(value))
	if len(code) != 10 {
		return false
	}
	allSame := true
	sum := 0
	for i := 0; i < 10; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != code[0] {
			allSame = false
		}
		if i < 9 {
			sum += int(c-'0') * (10 - i)
		}
	}
	if allSame {
		return false
	}
	check := int(code[9] - '0')
	r := sum % 11
	if r < 2 {
		return check == r
	}
	return check == 11-r
}

// IsDate accepts YYYY-MM-DD. Jalali dates are allowed, so only the month and
// day ranges are checked rather than a Gregorian calendar parse.
func IsDate(value string) bool {
	value = NormalizeDate(value)
	if !ymdPattern.MatchString(value) {
		return false
	}
	month := (value[5]-'0')*10 + (value[6] - '0')
	day := (value[8]-'0')*10 + (value[9] - '0')
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	year, _ := strconv.Atoi(value[:4])
	if year < jalaliYearCutoff {
		return true
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

// NormalizeDate converts digits and slashes so 1403/01/05 becomes 1403-01-05.
func NormalizeDate(value string) string {
	return strings.ReplaceAll(NormalizeDigits(strings.TrimSpace(value)), "/", "-")
}
