package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tajious/ejare/internal/models"
	"gorm.io/gorm"
)

type ContractFilter struct {
	Status   models.ContractStatus
	Search   string
	Page     int
	PageSize int
}

// Guard restricts a contract update to rows still in one of From and,
// when Version is non-zero, still at that version.
type Guard struct {
	From    []models.ContractStatus
	Version int
}

func (s *GormStorage) CreateContract(ctx context.Context, contract *models.Contract) error {
	if err := s.db.WithContext(ctx).Create(contract).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStorage) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &contract, nil
}

func (s *GormStorage) GetContractByNumber(ctx context.Context, contractNumber string) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "contract_number = ?", contractNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// ListContracts never returns soft-deleted rows.
func (s *GormStorage) ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, int64, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Contract{}).Where("status <> ?", models.StatusDeleted)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(tenant_name) LIKE ? OR LOWER(contract_number) LIKE ? OR LOWER(property_address) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contracts []models.Contract
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&contracts).Error
	if err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// TransitionContract runs a single guarded UPDATE and bumps the version.
// It reports false when the guard matched no row.
func (s *GormStorage) TransitionContract(ctx context.Context, id string, guard Guard, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = time.Now().UTC()

	query := s.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id)
	if len(guard.From) > 0 {
		query = query.Where("status IN ?", guard.From)
	}
	if guard.Version > 0 {
		query = query.Where("version = ?", guard.Version)
	}

	result := query.UpdateColumns(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStorage) DeleteContract(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.Contract{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
