package models

import "time"

// User model
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Username       string    `gorm:"size:255;not null;unique" json:"username"`
	HashedPassword []byte    `gorm:"not null" json:"-"`
	RoleID         *uint     `gorm:"index" json:"-"`
	Role           Role      `gorm:"foreignKey:RoleID;references:ID" json:"-"`
}
