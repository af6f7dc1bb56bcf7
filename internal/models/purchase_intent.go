package models

import "time"

// PurchaseIntent records what a user was buying before checkout was opened.
// The webhook payload does not carry the chosen plan, so the intent is read
// back and consumed when the matching payment is verified. One per user.
type PurchaseIntent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Credits   int       `gorm:"default:0" json:"credits"`
	Plan      string    `gorm:"size:32" json:"plan,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (PurchaseIntent) TableName() string {
	return "purchase_intents"
}
