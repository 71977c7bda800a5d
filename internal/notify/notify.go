// Package notify delivers contract events over email, Telegram and WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tajious/ejare/internal/models"
)

var (
	ErrNotConfigured = errors.New("channel is not configured")
	ErrDisabled      = errors.New("channel is disabled")
	ErrNoRecipient   = errors.New("no recipient for channel")
)

// Channel is one outbound provider. A channel is attempted only when it is
// both enabled and configured.
type Channel interface {
	Name() models.Channel
	Enabled() bool
	Configured() bool
	SendContractSigned(ctx context.Context, contract models.Contract) error
	TestConnection(ctx context.Context) error
}

// AccessCodeSender is implemented by channels that can reach the tenant directly.
type AccessCodeSender interface {
	SendAccessCode(ctx context.Context, contract models.Contract) error
}

func available(ch Channel) bool {
	return ch.Enabled() && ch.Configured()
}

var tehran = loadTehran()

func loadTehran() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		return time.FixedZone("IRST", 3*60*60+30*60)
	}
	return loc
}

func signedSubject(c models.Contract) string {
	return fmt.Sprintf("قرارداد %s امضا شد", c.ContractNumber)
}

func signedMessage(c models.Contract) string {
	signedAt := time.Now()
	if c.SignedAt != nil {
		signedAt = *c.SignedAt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ قرارداد اجاره امضا شد\n\n")
	fmt.Fprintf(&b, "شماره قرارداد: %s\n", c.ContractNumber)
	fmt.Fprintf(&b, "مستاجر: %s\n", c.TenantName)
	fmt.Fprintf(&b, "آدرس ملک: %s\n", c.PropertyAddress)
	fmt.Fprintf(&b, "مبلغ اجاره: %s ریال\n", FormatAmount(c.RentAmount))
	if c.Deposit > 0 {
		fmt.Fprintf(&b, "ودیعه: %s ریال\n", FormatAmount(c.Deposit))
	}
	fmt.Fprintf(&b, "مدت: %s تا %s\n", c.StartDate, c.EndDate)
	fmt.Fprintf(&b, "زمان امضا: %s", signedAt.In(tehran).Format("2006-01-02 15:04"))
	return b.String()
}

func accessCodeMessage(c models.Contract) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s عزیز،\n\n", c.TenantName)
	fmt.Fprintf(&b, "قرارداد اجاره ملک %s برای شما ثبت شد.\n", c.PropertyAddress)
	fmt.Fprintf(&b, "برای مشاهده و امضای قرارداد از اطلاعات زیر استفاده کنید:\n\n")
	fmt.Fprintf(&b, "شماره قرارداد: %s\n", c.ContractNumber)
	fmt.Fprintf(&b, "کد دسترسی: %s\n", c.AccessCode)
	return b.String()
}

// FormatAmount groups digits in threes, e.g. 5000000 -> 5,000,000.
func FormatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
