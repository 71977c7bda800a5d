package notify

import (
	"fmt"
	"strings"

	"github.com/tajious/ejare/internal/validation"
)

// FormatPhoneNumber normalises Iranian numbers to E.164. Accepted inputs
// include 09121234567, 9121234567, 989121234567, 00989121234567 and
// +989121234567, with Persian digits and common separators. Numbers that
// already carry another country code are returned in +<digits> form.
func FormatPhoneNumber(raw string) (string, error) {
	s := validation.NormalizeDigits(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "whatsapp:")

	plus := strings.HasPrefix(s, "+")
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ' ' || c == '-' || c == '(' || c == ')' || c == '.' || (c == '+' && i == 0):
		default:
			return "", fmt.Errorf("invalid phone number %q", raw)
		}
	}
	d := string(digits)

	switch {
	case plus:
	case strings.HasPrefix(d, "00"):
		d = d[2:]
	case strings.HasPrefix(d, "0") && len(d) == 11:
		d = "98" + d[1:]
	case strings.HasPrefix(d, "9") && len(d) == 10:
		d = "98" + d
	}

	if strings.HasPrefix(d, "98") && len(d) != 12 {
		return "", fmt.Errorf("invalid Iranian phone number %q", raw)
	}
	if len(d) < 8 || len(d) > 15 {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return "+" + d, nil
}
