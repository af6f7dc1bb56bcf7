package repository

import (
	"calevid/internal/models"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// Create inserts the dedup marker. The unique index on reference makes this
// fail for the loser of a concurrent race; the caller treats that as
// already-processed and rolls back its balance increment.
func (r *LedgerRepository) Create(e *models.CreditLedgerEntry) error {
	return r.db.Create(e).Error
}

func (r *LedgerRepository) GetByReference(reference string) (*models.CreditLedgerEntry, error) {
	var e models.CreditLedgerEntry
	err := r.db.Where("reference = ?", reference).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepository) ListByUserID(userID uint, limit int) ([]models.CreditLedgerEntry, error) {
	var entries []models.CreditLedgerEntry
	q := r.db.Where("user_id = ?", userID).Order("applied_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}
