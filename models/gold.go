package models

import "time"

// GoldType enumerates the accepted gold brands/mints.
type GoldType string

const (
	GoldTypeAntam     GoldType = "antam"
	GoldTypeUBS       GoldType = "ubs"
	GoldTypeGaleri24  GoldType = "galeri24"
	GoldTypePegadaian GoldType = "pegadaian"
	GoldTypeOther     GoldType = "other"
)

// GoldAsset is one physical gold holding. Monetary fields are in the smallest
// currency unit; weight is fractional grams.
type GoldAsset struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	UserID               uint      `gorm:"index;not null" json:"user_id"`
	Name                 string    `gorm:"size:255;not null" json:"name"`
	GoldType             GoldType  `gorm:"size:16;not null" json:"gold_type"`
	WeightGram           float64   `gorm:"not null" json:"weight_gram"`
	PurchasePricePerGram int64     `gorm:"not null" json:"purchase_price_per_gram"`
	PurchaseDate         time.Time `gorm:"not null" json:"purchase_date"`
	StorageLocation      string    `gorm:"size:255" json:"storage_location"`
	Notes                string    `gorm:"size:512" json:"notes"`

	// Derived at read time against the latest price observation, never stored.
	CurrentPricePerGram int64   `gorm:"-" json:"current_price_per_gram"`
	PurchaseValue       int64   `gorm:"-" json:"purchase_value"`
	CurrentValue        int64   `gorm:"-" json:"current_value"`
	ProfitLoss          int64   `gorm:"-" json:"profit_loss"`
	ProfitLossPercent   float64 `gorm:"-" json:"profit_loss_percent"`
}

// GoldPrice is one observation in the append-only price ledger. Rows are never
// updated or deleted, so there is no UpdatedAt.
type GoldPrice struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	PricePerGram int64     `gorm:"not null" json:"price_per_gram"`
	ObservedAt   time.Time `gorm:"index;not null" json:"observed_at"`
	Source       string    `gorm:"size:64" json:"source"`
}
