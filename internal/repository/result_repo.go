package repository

import (
	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/model"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *ResultRepository) WithTx(tx *gorm.DB) *ResultRepository {
	return &ResultRepository{db: tx}
}

// Create inserts a cache entry. Entries are immutable: there is no update
// path, and the unique (tenant_id, fingerprint) index rejects duplicates.
func (r *ResultRepository) Create(result *model.OptimizationResult) error {
	return r.db.Create(result).Error
}

func (r *ResultRepository) GetByFingerprint(tenantID int64, fp string) (*model.OptimizationResult, error) {
	var result model.OptimizationResult
	err := r.db.Where("tenant_id = ? AND fingerprint = ?", tenantID, fp).First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// List returns cache entries for export, optionally filtered by dataset and
// SKU, best scores first.
func (r *ResultRepository) List(tenantID int64, datasetID, sku string) ([]*model.OptimizationResult, error) {
	query := r.db.Where("tenant_id = ?", tenantID)
	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}
	if sku != "" {
		query = query.Where("sku = ?", sku)
	}

	var results []*model.OptimizationResult
	err := query.Order("composite_score DESC, created_at ASC").Find(&results).Error
	return results, err
}

func (r *ResultRepository) Count(tenantID int64) (int64, error) {
	var n int64
	err := r.db.Model(&model.OptimizationResult{}).
		Where("tenant_id = ?", tenantID).
		Count(&n).Error
	return n, err
}

// DeleteAll clears the cache for a tenant. The only mutation besides insert.
func (r *ResultRepository) DeleteAll(tenantID int64) (int64, error) {
	res := r.db.
		Where("tenant_id = ?", tenantID).
		Delete(&model.OptimizationResult{})
	return res.RowsAffected, res.Error
}
