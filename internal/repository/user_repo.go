package repository

import (
	"time"

	"calevid/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddCredits applies a balance delta as an atomic add in the store, so
// concurrent applies for different references never lose increments.
func (r *UserRepository) AddCredits(userID uint, delta int64) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", delta)).Error
}

// ConsumeCredit decrements one credit if any remain. Returns false when the
// balance was already zero (the conditional update matched no row).
func (r *UserRepository) ConsumeCredit(userID uint) (bool, error) {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND credits > 0", userID).
		Update("credits", gorm.Expr("credits - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementPlanUsed bumps the plan usage counter for users on a plan.
func (r *UserRepository) IncrementPlanUsed(userID uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND plan <> ''", userID).
		Update("plan_used", gorm.Expr("plan_used + 1")).Error
}

// SetPlan activates a plan tier: name, quota, reset usage, start time.
func (r *UserRepository) SetPlan(userID uint, plan string, limit int, start time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"plan":       plan,
		"plan_limit": limit,
		"plan_used":  0,
		"plan_start": start,
	}).Error
}
