package repository

import (
	"errors"

	"calevid/internal/models"

	"gorm.io/gorm"
)

type IntentRepository struct {
	db *gorm.DB
}

func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *IntentRepository) WithTx(tx *gorm.DB) *IntentRepository {
	return &IntentRepository{db: tx}
}

func (r *IntentRepository) GetByUserID(userID uint) (*models.PurchaseIntent, error) {
	var i models.PurchaseIntent
	err := r.db.Where("user_id = ?", userID).First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Save upserts the single pending intent for a user; a new checkout replaces
// whatever was pending before.
func (r *IntentRepository) Save(intent *models.PurchaseIntent) error {
	existing, err := r.GetByUserID(intent.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.Create(intent).Error
		}
		return err
	}
	existing.Credits = intent.Credits
	existing.Plan = intent.Plan
	return r.db.Save(existing).Error
}

func (r *IntentRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.PurchaseIntent{}).Error
}
