package auth

import (
	"context"
	"time"

	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/kv"
)

const tenantLoginScope = "tenant_login"

var errLockedOut = apperrors.New(apperrors.CodeRateLimit, "تعداد تلاش‌های ناموفق بیش از حد مجاز است. لطفاً یک ساعت دیگر تلاش کنید")

// Limiter counts tenant login attempts per contract number. An attempt takes
// its slot before credentials are compared, so concurrent guesses cannot
// share one. Each taken slot re-arms the window; the lockout lasts until
// window passes without an attempt.
type Limiter struct {
	store  kv.Store
	max    int
	window time.Duration
}

func NewLimiter(store kv.Store, max int, window time.Duration) *Limiter {
	return &Limiter{store: store, max: max, window: window}
}

// Acquire takes an attempt slot and returns the attempt number. Once max
// attempts are held it rejects, even before correct credentials.
func (l *Limiter) Acquire(ctx context.Context, contractNumber string) (int, error) {
	attempt, err := l.store.Increment(ctx, l.key(contractNumber), l.window)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeDependency, err, "failed to record login attempt")
	}
	if attempt > l.max {
		return attempt, errLockedOut
	}
	return attempt, nil
}

// Release gives back a slot for an attempt that was not a wrong guess.
func (l *Limiter) Release(ctx context.Context, contractNumber string) error {
	_, err := l.store.Decrement(ctx, l.key(contractNumber))
	return err
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, contractNumber string) error {
	return l.store.Delete(ctx, l.key(contractNumber))
}

func (l *Limiter) key(contractNumber string) string {
	return kv.RateLimitKey(tenantLoginScope, contractNumber)
}
