// Package contract implements the contract lifecycle: create, read, edit,
// activate, sign, terminate and delete.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/audit"
	"github.com/tajious/ejare/internal/config"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/kv"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/notify"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/validation"
)

const createAttempts = 5

var (
	errNotFound    = apperrors.New(apperrors.CodeNotFound, "قرارداد یافت نشد")
	errForbidden   = apperrors.New(apperrors.CodeForbidden, "دسترسی به این قرارداد مجاز نیست")
	errSigned      = apperrors.New(apperrors.CodeAlreadySigned, "این قرارداد قبلاً امضا شده است")
	errTerminated  = apperrors.New(apperrors.CodeStateConflict, "این قرارداد فسخ شده است")
	errNotActive   = apperrors.New(apperrors.CodeStateConflict, "قرارداد هنوز فعال نشده است")
	errNotDraft    = apperrors.New(apperrors.CodeStateConflict, "فقط قرارداد پیش‌نویس قابل فعال‌سازی است")
	errNotEditable = apperrors.New(apperrors.CodeStateConflict, "قرارداد در وضعیت فعلی قابل ویرایش نیست")
	errNoFields    = apperrors.New(apperrors.CodeValidation, "هیچ فیلد قابل ویرایشی ارسال نشده است")
)

// Notifier is the part of the notification dispatcher the lifecycle uses.
type Notifier interface {
	NotifyContractSigned(ctx context.Context, contract models.Contract) notify.Result
	NotifyContractCreated(ctx context.Context, contract models.Contract) bool
}

type Service struct {
	store    storage.ContractStore
	cache    kv.Store
	notifier Notifier
	audit    *audit.Recorder
	metrics  *metrics.Metrics
	logger   *logger.Logger
	cfg      config.ContractConfig
	now      func() time.Time
}

type Options struct {
	Store    storage.ContractStore
	Cache    kv.Store
	Notifier Notifier
	Audit    *audit.Recorder
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Config   config.ContractConfig
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    opts.Store,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		logger:   log,
		cfg:      opts.Config,
		now:      time.Now,
	}
}

type CreateResult struct {
	Contract       models.Contract `json:"contract"`
	ContractNumber string          `json:"contractNumber"`
	AccessCode     string          `json:"accessCode"`
	AccessCodeSent bool            `json:"accessCodeSent"`
}

type ListResult struct {
	Contracts []models.Contract `json:"contracts"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PageSize  int               `json:"pageSize"`
}

type SignResult struct {
	Contract      models.Contract `json:"contract"`
	Notifications notify.Result   `json:"notifications"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, actor audit.Actor) (*CreateResult, error) {
	in.StartDate = validation.NormalizeDate(in.StartDate)
	in.EndDate = validation.NormalizeDate(in.EndDate)
	in.TenantNationalID = validation.NormalizeDigits(strings.TrimSpace(in.TenantNationalID))
	in.LandlordNationalID = validation.NormalizeDigits(strings.TrimSpace(in.LandlordNationalID))
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := checkPeriod(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusActive
	}

	c := &models.Contract{
		TenantName:         strings.TrimSpace(in.TenantName),
		TenantEmail:        strings.TrimSpace(in.TenantEmail),
		TenantPhone:        strings.TrimSpace(in.TenantPhone),
		TenantNationalID:   in.TenantNationalID,
		LandlordName:       strings.TrimSpace(in.LandlordName),
		LandlordEmail:      strings.TrimSpace(in.LandlordEmail),
		LandlordPhone:      strings.TrimSpace(in.LandlordPhone),
		LandlordNationalID: in.LandlordNationalID,
		PropertyAddress:    strings.TrimSpace(in.PropertyAddress),
		PropertyType:       in.PropertyType,
		PropertySize:       in.PropertySize,
		RentAmount:         in.RentAmount,
		Deposit:            in.Deposit,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Description:        in.Description,
		Status:             status,
		Version:            1,
	}

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		c.ID = uuid.NewString()
		if c.ContractNumber, err = newContractNumber(s.now()); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to generate contract number")
		}
		if c.AccessCode, err = newAccessCode(); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to generate access code")
		}
		err = s.store.CreateContract(ctx, c)
		if !errors.Is(err, storage.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create contract")
	}

	s.metrics.Transition("create")
	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditContractCreate,
		Actor:    actor,
		EntityID: c.ID,
		Details:  map[string]any{"contractNumber": c.ContractNumber, "status": c.Status},
	})

	sent := false
	if s.notifier != nil {
		sent = s.notifier.NotifyContractCreated(ctx, *c)
	}

	return &CreateResult{
		Contract:       *c,
		ContractNumber: c.ContractNumber,
		AccessCode:     c.AccessCode,
		AccessCodeSent: sent,
	}, nil
}

// List returns a page of contracts for admins. Tenants only ever see their own contract.
func (s *Service) List(ctx context.Context, filter storage.ContractFilter, claims *models.Claims) (*ListResult, error) {
	if claims.Role == models.RoleTenant {
		c, err := s.tenantSummary(ctx, claims)
		if err != nil {
			return nil, err
		}
		return &ListResult{Contracts: []models.Contract{*c}, Total: 1, Page: 1, PageSize: 1}, nil
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "وضعیت نامعتبر است").
			WithDetails(map[string]string{"status": "oneof"})
	}
	contracts, total, err := s.store.ListContracts(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list contracts")
	}
	if contracts == nil {
		contracts = []models.Contract{}
	}
	for i := range contracts {
		contracts[i] = contracts[i].Summary()
	}
	page, pageSize := storage.NormalizePage(filter.Page, filter.PageSize)
	return &ListResult{Contracts: contracts, Total: total, Page: page, PageSize: pageSize}, nil
}

// tenantSummary is the tenant's own contract for list views, served through
// the number cache.
func (s *Service) tenantSummary(ctx context.Context, claims *models.Claims) (*models.Contract, error) {
	c, err := s.GetContractByNumber(ctx, claims.ContractNumber)
	if errors.Is(err, storage.ErrContractNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load contract")
	}
	if c.ID != claims.ContractID {
		return nil, errForbidden
	}
	if c.Status == models.StatusTerminated {
		return nil, errTerminated
	}
	view := c.Summary().ForTenant()
	return &view, nil
}

func (s *Service) Get(ctx context.Context, id string, claims *models.Claims) (*models.Contract, error) {
	if claims.Role == models.RoleTenant && claims.ContractID != id {
		return nil, errForbidden
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleTenant {
		if c.Status == models.StatusTerminated {
			return nil, errTerminated
		}
		view := c.ForTenant()
		return &view, nil
	}
	return c, nil
}

// GetContractByNumber serves tenant-facing display reads through the cache.
// Deleted contracts are reported as not found. Decisions that depend on the
// status, such as login and signing, read the store instead.
func (s *Service) GetContractByNumber(ctx context.Context, number string) (*models.Contract, error) {
	key := kv.ContractCacheKey(number)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var c models.Contract
			if json.Unmarshal([]byte(raw), &c) == nil {
				return &c, nil
			}
		} else if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Error(ctx, "contract cache read failed", err)
		}
	}

	c, err := s.fetchByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return c, nil
	}

	raw, err := json.Marshal(c.Summary())
	if err != nil {
		return c, nil
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cfg.CacheTTL); err != nil {
		s.logger.Error(ctx, "contract cache write failed", err)
		return c, nil
	}

	// A transition that committed between the read above and the write has
	// already evicted, so its eviction cannot remove this entry. Re-read and
	// drop the entry if the row moved on.
	latest, err := s.fetchByNumber(ctx, number)
	if err != nil || latest.Version != c.Version || latest.Status != c.Status {
		s.evict(ctx, number)
	}
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *Service) fetchByNumber(ctx context.Context, number string) (*models.Contract, error) {
	c, err := s.store.GetContractByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if c.Status == models.StatusDeleted {
		return nil, storage.ErrContractNotFound
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput, actor audit.Actor) (*models.Contract, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	updates := in.columns()
	if len(updates) == 0 {
		return nil, errNoFields
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := editableError(current.Status); err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != current.Version {
		return nil, staleError(current.Version)
	}

	start, end := current.StartDate, current.EndDate
	if v, ok := updates["start_date"].(string); ok {
		start = v
	}
	if v, ok := updates["end_date"].(string); ok {
		end = v
	}
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}

	guard := storage.Guard{
		From:    []models.ContractStatus{models.StatusDraft, models.StatusActive},
		Version: current.Version,
	}
	if err := s.transition(ctx, current, guard, updates, editableError); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(updates))
	for col := range updates {
		fields = append(fields, col)
	}
	s.metrics.Transition("update")
	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditContractUpdate,
		Actor:    actor,
		EntityID: id,
		Details:  map[string]any{"fields": fields},
	})
	return s.load(ctx, id)
}

func (s *Service) Activate(ctx context.Context, id string, actor audit.Actor) (*models.Contract, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	guard := storage.Guard{From: []models.ContractStatus{models.StatusDraft}}
	updates := map[string]any{"status": models.StatusActive}
	if err := s.transition(ctx, current, guard, updates, activateError); err != nil {
		return nil, err
	}

	s.metrics.Transition("activate")
	s.audit.Record(ctx, audit.Entry{Action: models.AuditContractActivate, Actor: actor, EntityID: id})
	return s.load(ctx, id)
}

// Sign attaches the tenant's signature. The write is a single guarded
// update from active, so a contract is signed at most once. Notifications
// run after the signature is stored and cannot fail the operation.
func (s *Service) Sign(ctx context.Context, contractNumber string, in SignInput, claims *models.Claims, ip string) (*SignResult, error) {
	if claims.Role != models.RoleTenant || !strings.EqualFold(claims.ContractNumber, contractNumber) {
		return nil, errForbidden
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	current, err := s.store.GetContractByNumber(ctx, claims.ContractNumber)
	if errors.Is(err, storage.ErrContractNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load contract")
	}
	if current.ID != claims.ContractID {
		return nil, errForbidden
	}
	if err := signError(current.Status); err != nil {
		return nil, err
	}

	if err := checkDataURL(in.Signature, imageRules{
		field:     "signature",
		maxBytes:  s.cfg.MaxSignatureBytes,
		minWidth:  s.cfg.MinSignatureWidth,
		minHeight: s.cfg.MinSignatureHeight,
	}); err != nil {
		return nil, err
	}
	if in.NationalIDImage != "" {
		if err := checkDataURL(in.NationalIDImage, imageRules{field: "nationalIdImage", maxBytes: s.cfg.MaxIDImageBytes}); err != nil {
			return nil, err
		}
	}

	signedAt := s.now().UTC()
	updates := map[string]any{
		"status":    models.StatusSigned,
		"signature": in.Signature,
		"signed_at": signedAt,
	}
	if in.NationalIDImage != "" {
		updates["national_id_image"] = in.NationalIDImage
	}
	guard := storage.Guard{From: []models.ContractStatus{models.StatusActive}}
	if err := s.transition(ctx, current, guard, updates, signError); err != nil {
		return nil, err
	}

	signed, err := s.load(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("sign")

	result := notify.Result{Channels: map[models.Channel]notify.ChannelResult{}}
	if s.notifier != nil {
		result = s.notifier.NotifyContractSigned(ctx, *signed)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditContractSign,
		Actor:    audit.ActorFromClaims(claims, ip),
		EntityID: signed.ID,
		Details: map[string]any{
			"contractNumber":         signed.ContractNumber,
			"notificationsAttempted": result.Attempted,
			"notificationsSucceeded": result.Succeeded,
		},
	})

	return &SignResult{Contract: signed.ForTenant(), Notifications: result}, nil
}

func (s *Service) Terminate(ctx context.Context, id string, actor audit.Actor) (*models.Contract, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	guard := storage.Guard{From: []models.ContractStatus{models.StatusDraft, models.StatusActive}}
	updates := map[string]any{"status": models.StatusTerminated, "terminated_at": now}
	if err := s.transition(ctx, current, guard, updates, terminateError); err != nil {
		return nil, err
	}

	s.metrics.Transition("terminate")
	s.audit.Record(ctx, audit.Entry{Action: models.AuditContractTerminate, Actor: actor, EntityID: id})
	return s.load(ctx, id)
}

// Delete soft-deletes by setting status deleted, or removes the row when
// soft delete is disabled.
func (s *Service) Delete(ctx context.Context, id string, actor audit.Actor) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if s.cfg.SoftDelete {
		guard := storage.Guard{From: []models.ContractStatus{
			models.StatusDraft, models.StatusActive, models.StatusSigned, models.StatusTerminated,
		}}
		updates := map[string]any{"status": models.StatusDeleted, "deleted_at": s.now().UTC()}
		if err := s.transition(ctx, current, guard, updates, func(models.ContractStatus) error { return errNotFound }); err != nil {
			return err
		}
	} else {
		deleted, err := s.store.DeleteContract(ctx, id)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to delete contract")
		}
		s.evict(ctx, current.ContractNumber)
		if !deleted {
			return errNotFound
		}
	}

	s.metrics.Transition("delete")
	s.audit.Record(ctx, audit.Entry{
		Action:   models.AuditContractDelete,
		Actor:    actor,
		EntityID: id,
		Details:  map[string]any{"contractNumber": current.ContractNumber, "soft": s.cfg.SoftDelete},
	})
	return nil
}

// transition runs one guarded update and always evicts the cached entry.
// When the guard matches nothing, the row is re-read and explain maps the
// state that blocked it to an error.
func (s *Service) transition(ctx context.Context, current *models.Contract, guard storage.Guard, updates map[string]any, explain func(models.ContractStatus) error) error {
	ok, err := s.store.TransitionContract(ctx, current.ID, guard, updates)
	s.evict(ctx, current.ContractNumber)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to update contract")
	}
	if ok {
		return nil
	}

	latest, err := s.load(ctx, current.ID)
	if err != nil {
		return err
	}
	if err := explain(latest.Status); err != nil {
		return err
	}
	return staleError(latest.Version)
}

func (s *Service) evict(ctx context.Context, number string) {
	if s.cache == nil || number == "" {
		return
	}
	if err := s.cache.Delete(ctx, kv.ContractCacheKey(number)); err != nil {
		s.logger.Error(ctx, "contract cache eviction failed", err)
	}
}

// load returns a non-deleted contract by id.
func (s *Service) load(ctx context.Context, id string) (*models.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if errors.Is(err, storage.ErrContractNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load contract")
	}
	if c.Status == models.StatusDeleted {
		return nil, errNotFound
	}
	return c, nil
}

func staleError(version int) error {
	return apperrors.New(apperrors.CodeConflict, "قرارداد در این فاصله تغییر کرده است. لطفاً دوباره بارگذاری کنید").
		WithDetails(map[string]int{"version": version})
}

func editableError(status models.ContractStatus) error {
	switch status {
	case models.StatusDraft, models.StatusActive:
		return nil
	case models.StatusSigned:
		return errSigned
	case models.StatusTerminated:
		return errTerminated
	case models.StatusDeleted:
		return errNotFound
	}
	return errNotEditable
}

func activateError(status models.ContractStatus) error {
	switch status {
	case models.StatusDraft:
		return nil
	case models.StatusDeleted:
		return errNotFound
	case models.StatusSigned:
		return errSigned
	case models.StatusTerminated:
		return errTerminated
	}
	return errNotDraft
}

func signError(status models.ContractStatus) error {
	switch status {
	case models.StatusActive:
		return nil
	case models.StatusSigned:
		return errSigned
	case models.StatusTerminated:
		return errTerminated
	case models.StatusDeleted:
		return errNotFound
	}
	return errNotActive
}

func terminateError(status models.ContractStatus) error {
	switch status {
	case models.StatusDraft, models.StatusActive:
		return nil
	case models.StatusSigned:
		return apperrors.New(apperrors.CodeStateConflict, "قرارداد امضا شده قابل فسخ نیست")
	case models.StatusTerminated:
		return errTerminated
	case models.StatusDeleted:
		return errNotFound
	}
	return errNotEditable
}
