package models

import "time"

// CreditCard is an independent entity, deliberately not an Account variant.
// BillingDate and PaymentDueDate are days of month.
type CreditCard struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	CardName       string    `gorm:"size:255;not null" json:"card_name"`
	LastFourDigits string    `gorm:"size:4;not null" json:"last_four_digits"`
	CreditLimit    int64     `gorm:"not null" json:"credit_limit"`
	CurrentBalance int64     `gorm:"not null" json:"current_balance"`
	BillingDate    int       `gorm:"not null" json:"billing_date"`
	PaymentDueDate int       `gorm:"not null" json:"payment_due_date"`
}
