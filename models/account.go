package models

import "time"

// AccountType enumerates the kinds of money pots a user can open.
type AccountType string

const (
	AccountTypeBank     AccountType = "bank"
	AccountTypeWallet   AccountType = "wallet"
	AccountTypeCash     AccountType = "cash"
	AccountTypePaylater AccountType = "paylater"
)

// Account is a user's account. A pocket (sub-account) is a full Account whose
// ParentAccountID is set; there is no separate pocket type. Balance is stored
// in the smallest currency unit and always starts at zero.
type Account struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	UserID          uint        `gorm:"not null;uniqueIndex:idx_account_owner_name" json:"user_id"`
	Name            string      `gorm:"size:255;not null;uniqueIndex:idx_account_owner_name" json:"name"`
	Type            AccountType `gorm:"size:16;not null" json:"type"`
	Currency        string      `gorm:"size:8;not null" json:"currency"`
	Balance         int64       `gorm:"not null" json:"balance"`
	ParentAccountID *uint       `gorm:"index" json:"parent_account_id,omitempty"`

	// SubAccounts is filled on reads only; pockets are attached to their parent.
	SubAccounts []Account `gorm:"-" json:"sub_accounts,omitempty"`
}
