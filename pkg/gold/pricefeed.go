package gold

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

// PriceFeed is the append-only ledger of gold price observations. Past
// observations are never updated or deleted; the current price is simply the
// most recent one. An empty feed is a configuration error, not a zero price:
// it must be seeded before valuations make sense.
type PriceFeed struct {
	db *gorm.DB
}

func NewPriceFeed(db *gorm.DB) *PriceFeed {
	return &PriceFeed{db: db}
}

// Record appends one observation. observedAt defaults to now.
func (f *PriceFeed) Record(pricePerGram int64, observedAt time.Time, source string) (*models.GoldPrice, error) {
	if pricePerGram <= 0 {
		return nil, apperr.Validationf("price per gram must be positive, got %d", pricePerGram)
	}
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	if source == "" {
		source = "manual"
	}
	obs := models.GoldPrice{
		PricePerGram: pricePerGram,
		ObservedAt:   normalizeObservedAt(observedAt),
		Source:       source,
	}
	if err := f.db.Create(&obs).Error; err != nil {
		return nil, err
	}
	return &obs, nil
}

// Current returns the latest observation.
func (f *PriceFeed) Current() (*models.GoldPrice, error) {
	return latestPrice(f.db)
}

// History returns up to limit observations, newest-first. A non-positive or
// oversized limit falls back to 30.
func (f *PriceFeed) History(limit int) ([]models.GoldPrice, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}
	out := make([]models.GoldPrice, 0, limit)
	if err := f.db.Order("observed_at desc, id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Seen reports whether an identical observation was already recorded. Ingestion
// jobs use it to stay idempotent across re-reads of the same source file.
func (f *PriceFeed) Seen(pricePerGram int64, observedAt time.Time, source string) (bool, error) {
	var cnt int64
	err := f.db.Model(&models.GoldPrice{}).
		Where("price_per_gram = ? AND observed_at = ? AND source = ?", pricePerGram, normalizeObservedAt(observedAt), source).
		Count(&cnt).Error
	return cnt > 0, err
}

// normalizeObservedAt drops sub-second precision and pins UTC so equality
// comparisons behave the same across postgres and sqlite timestamp storage.
func normalizeObservedAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func latestPrice(tx *gorm.DB) (*models.GoldPrice, error) {
	var p models.GoldPrice
	if err := tx.Order("observed_at desc, id desc").First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("no gold price recorded yet; seed the price feed")
		}
		return nil, err
	}
	return &p, nil
}
