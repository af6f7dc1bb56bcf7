package models

import "time"

// CreditLedgerEntry is the permanent dedup fence for payment processing:
// at most one row ever exists per reference (enforced by the unique index),
// created at the moment credits are applied, never updated, never deleted.
type CreditLedgerEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"size:128;uniqueIndex;not null" json:"reference"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	CreditsApplied int64     `gorm:"not null" json:"credits_applied"`
	AppliedAt      time.Time `gorm:"not null" json:"applied_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (CreditLedgerEntry) TableName() string {
	return "credit_ledger_entries"
}
