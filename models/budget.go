package models

import "time"

// Budget is a monthly spending cap for one category. At most one budget may
// exist per (user, category, month, year); the composite unique index enforces
// this at the store as well.
type Budget struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_budget_period" json:"user_id"`
	Category    string    `gorm:"size:255;not null;uniqueIndex:idx_budget_period" json:"category"`
	Amount      int64     `gorm:"not null" json:"amount"`
	BudgetMonth int       `gorm:"not null;uniqueIndex:idx_budget_period" json:"budget_month"`
	BudgetYear  int       `gorm:"not null;uniqueIndex:idx_budget_period" json:"budget_year"`
}
