// Package auth implements admin and tenant login, token verification and logout.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/audit"
	"github.com/tajious/ejare/internal/config"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/kv"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = apperrors.New(apperrors.CodeUnauthorized, "اطلاعات ورود نادرست است")
	errAlreadySigned      = apperrors.New(apperrors.CodeAlreadySigned, "این قرارداد قبلاً امضا شده است و امکان ورود مجدد وجود ندارد")
)

// ContractFinder resolves a contract by its public number. Login decides
// access from the returned status, so it must read the database rather than
// a cache.
type ContractFinder interface {
	GetContractByNumber(ctx context.Context, contractNumber string) (*models.Contract, error)
}

type Service struct {
	users     storage.UserStore
	contracts ContractFinder
	store     kv.Store
	tokens    *TokenManager
	limiter   *Limiter
	audit     *audit.Recorder
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

type Options struct {
	Users     storage.UserStore
	Contracts ContractFinder
	Store     kv.Store
	JWT       config.JWTConfig
	Contract  config.ContractConfig
	Audit     *audit.Recorder
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:     opts.Users,
		contracts: opts.Contracts,
		store:     opts.Store,
		tokens:    NewTokenManager(opts.JWT),
		limiter:   NewLimiter(opts.Store, opts.Contract.MaxFailedAttempts, opts.Contract.LockoutWindow),
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		logger:    log,
	}
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Login dispatches on which credential pair the request carries.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, ip string) (*models.LoginResponse, error) {
	if req.IsTenant() {
		return s.tenantLogin(ctx, req, ip)
	}
	return s.adminLogin(ctx, req, ip)
}

func (s *Service) adminLogin(ctx context.Context, req models.LoginRequest, ip string) (*models.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "نام کاربری و رمز عبور الزامی است")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load user")
	}

	hash := dummyHash()
	if user != nil {
		hash = user.Password
	}
	// The comparison runs for unknown users too so timing does not reveal them.
	matched := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) == nil
	if user == nil || !matched || user.Role != models.RoleAdmin {
		s.metrics.Login(string(models.RoleAdmin), "failure")
		s.audit.Record(ctx, audit.Entry{
			Action:  models.AuditLoginFailed,
			Actor:   audit.Actor{Role: models.RoleAdmin, IP: ip},
			Details: map[string]any{"username": username},
		})
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(models.Claims{UserID: user.ID, Role: models.RoleAdmin})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to sign token")
	}

	if err := s.users.UpdateUserLastLogin(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "failed to update last login", err)
	}

	s.metrics.Login(string(models.RoleAdmin), "success")
	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditLogin,
		Actor:    audit.Actor{Role: models.RoleAdmin, ID: user.ID, IP: ip},
		EntityID: user.ID,
	})

	return &models.LoginResponse{
		Token:     token,
		Role:      models.RoleAdmin,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *Service) tenantLogin(ctx context.Context, req models.LoginRequest, ip string) (*models.LoginResponse, error) {
	number := strings.ToUpper(validation.NormalizeDigits(strings.TrimSpace(req.ContractNumber)))
	code := validation.NormalizeDigits(strings.TrimSpace(req.AccessCode))
	if number == "" || code == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "شماره قرارداد و کد دسترسی الزامی است")
	}

	attempt, err := s.limiter.Acquire(ctx, number)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeRateLimit {
			s.metrics.Login(string(models.RoleTenant), "locked")
		}
		return nil, err
	}

	contract, err := s.contracts.GetContractByNumber(ctx, number)
	if err != nil && !errors.Is(err, storage.ErrContractNotFound) {
		s.release(ctx, number)
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load contract")
	}

	if contract == nil || !accessCodeMatches(contract.AccessCode, code) || !tenantAccessible(contract.Status) {
		return nil, s.tenantFailure(ctx, number, attempt, ip)
	}

	if contract.Status == models.StatusSigned {
		s.release(ctx, number)
		s.metrics.Login(string(models.RoleTenant), "already_signed")
		return nil, errAlreadySigned
	}

	if err := s.limiter.Reset(ctx, number); err != nil {
		s.logger.Error(ctx, "failed to reset tenant login counter", err)
	}

	token, expiresAt, err := s.tokens.Issue(models.Claims{
		ContractID:     contract.ID,
		ContractNumber: contract.ContractNumber,
		Role:           models.RoleTenant,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to sign token")
	}

	s.metrics.Login(string(models.RoleTenant), "success")
	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditLogin,
		Actor:    audit.Actor{Role: models.RoleTenant, ID: contract.ID, IP: ip},
		EntityID: contract.ID,
	})

	view := contract.ForTenant()
	return &models.LoginResponse{
		Token:     token,
		Role:      models.RoleTenant,
		ExpiresAt: expiresAt,
		Contract:  &view,
	}, nil
}

func (s *Service) tenantFailure(ctx context.Context, number string, attempt int, ip string) error {
	s.metrics.Login(string(models.RoleTenant), "failure")
	s.audit.Record(ctx, audit.Entry{
		Action:  models.AuditLoginFailed,
		Actor:   audit.Actor{Role: models.RoleTenant, IP: ip},
		Details: map[string]any{"contractNumber": number, "attempts": attempt},
	})
	return errInvalidCredentials
}

// release returns the attempt slot when the outcome was not a wrong guess.
func (s *Service) release(ctx context.Context, number string) {
	if err := s.limiter.Release(ctx, number); err != nil {
		s.logger.Error(ctx, "failed to release tenant login attempt", err)
	}
}

// tenantAccessible covers the states in which a correct access code is honoured.
// Signed contracts pass here so the caller can answer with the specific error.
func tenantAccessible(status models.ContractStatus) bool {
	return status.Editable() || status == models.StatusSigned
}

func accessCodeMatches(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "failed to check token revocation")
	}
	if revoked {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := s.store.Get(ctx, kv.RevokedTokenKey(jti))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Logout revokes the token id until the token would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *models.Claims, ip string) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl > 0 {
		if err := s.store.Set(ctx, kv.RevokedTokenKey(claims.ID), "1", ttl); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "failed to revoke token")
		}
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditLogout,
		Actor:    audit.Actor{Role: claims.Role, ID: claims.Subject(), IP: ip},
		EntityID: claims.Subject(),
	})
	return nil
}

// SeedAdmin creates the admin account when none exists yet. It reports
// whether a user was created.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	return SeedAdmin(ctx, s.users, username, password)
}

func SeedAdmin(ctx context.Context, users storage.UserStore, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	count, err := users.CountUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	err = users.CreateUser(ctx, &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: hash,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		hash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		dummy = string(hash)
	})
	return dummy
}
