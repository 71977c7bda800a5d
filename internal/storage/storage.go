package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrDuplicate        = errors.New("duplicate key")
)

type Storage interface {
	ContractStore
	UserStore
	SettingsStore
	AuditStore
	ExpenseStore
	ReportStore

	Ping(ctx context.Context) error
	GetDB() *gorm.DB
	Close() error
}

type ContractStore interface {
	CreateContract(ctx context.Context, contract *models.Contract) error
	GetContract(ctx context.Context, id string) (*models.Contract, error)
	GetContractByNumber(ctx context.Context, contractNumber string) (*models.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, int64, error)
	TransitionContract(ctx context.Context, id string, guard Guard, updates map[string]any) (bool, error)
	DeleteContract(ctx context.Context, id string) (bool, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserLastLogin(ctx context.Context, userID string) error
	CountUsersByRole(ctx context.Context, role models.Role) (int64, error)
}

type SettingsStore interface {
	ListNotificationSettings(ctx context.Context) ([]models.NotificationSetting, error)
	SaveNotificationSetting(ctx context.Context, setting *models.NotificationSetting) error
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error)
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, expense *models.Expense) error
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, int64, error)
	DeleteExpense(ctx context.Context, id string) error
}

type ReportStore interface {
	IncomeByMonth(ctx context.Context, year string) ([]MonthlyIncomeRow, error)
	StatusDistribution(ctx context.Context) ([]StatusCountRow, error)
	ExpensesByCategory(ctx context.Context, year string) ([]CategoryExpenseRow, error)
}

type GormStorage struct {
	db *gorm.DB
}

func gormConfig(log *logger.Logger, slowQuery time.Duration) *gorm.Config {
	if log == nil {
		log = logger.Nop()
	}
	return &gorm.Config{
		Logger:         log.Gorm(slowQuery),
		TranslateError: true,
	}
}

// New opens the database selected by cfg.Driver and migrates the schema.
// Failed and slow queries are logged through log.
func New(cfg config.DatabaseConfig, log *logger.Logger) (*GormStorage, error) {
	gcfg := gormConfig(log, cfg.SlowQuery)
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(cfg.DSN(), gcfg)
	case config.DriverSQLite:
		return openSQLite(cfg.DSN(), gcfg)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func NewPostgresStorage(dsn string, log *logger.Logger) (*GormStorage, error) {
	return openPostgres(dsn, gormConfig(log, defaultSlowQuery))
}

func NewSQLiteStorage(dsn string, log *logger.Logger) (*GormStorage, error) {
	return openSQLite(dsn, gormConfig(log, defaultSlowQuery))
}

func openPostgres(dsn string, gcfg *gorm.Config) (*GormStorage, error) {
	db, err := gorm.Open(postgres.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return open(db)
}

func openSQLite(dsn string, gcfg *gorm.Config) (*GormStorage, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)
	return open(db)
}

func open(db *gorm.DB) (*GormStorage, error) {
	s := &GormStorage{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormStorage) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.User{},
		&models.Contract{},
		&models.NotificationSetting{},
		&models.AuditLog{},
		&models.Expense{},
	); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStorage) GetDB() *gorm.DB {
	return s.db
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsUniqueViolation recognises duplicate-key errors from both drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
