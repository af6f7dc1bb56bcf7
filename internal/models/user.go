package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	// Credits is the prepaid video balance. Mutated only with atomic
	// `credits + ?` / `credits - 1` updates, never read-modify-write.
	Credits int64 `gorm:"not null;default:0" json:"credits"`

	// Subscription plan fields, set when a purchase intent names a plan.
	Plan      string     `gorm:"size:32" json:"plan,omitempty"`
	PlanLimit int        `gorm:"default:0" json:"plan_limit,omitempty"`
	PlanUsed  int        `gorm:"default:0" json:"plan_used,omitempty"`
	PlanStart *time.Time `json:"plan_start,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
