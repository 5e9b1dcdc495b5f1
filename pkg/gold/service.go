package gold

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

var validTypes = map[models.GoldType]bool{
	models.GoldTypeAntam:     true,
	models.GoldTypeUBS:       true,
	models.GoldTypeGaleri24:  true,
	models.GoldTypePegadaian: true,
	models.GoldTypeOther:     true,
}

type Service struct {
	db   *gorm.DB
	feed *PriceFeed
}

func NewService(db *gorm.DB, feed *PriceFeed) *Service {
	return &Service{db: db, feed: feed}
}

type CreateAssetRequest struct {
	Name                 string
	GoldType             models.GoldType
	WeightGram           float64
	PurchasePricePerGram int64
	PurchaseDate         time.Time
	StorageLocation      string
	Notes                string
}

// Summary aggregates all of one user's holdings against a single price
// snapshot.
type Summary struct {
	TotalWeightGram     float64   `json:"total_weight_gram"`
	TotalPurchaseValue  int64     `json:"total_purchase_value"`
	TotalCurrentValue   int64     `json:"total_current_value"`
	TotalProfitLoss     int64     `json:"total_profit_loss"`
	ProfitLossPercent   float64   `json:"profit_loss_percent"`
	CurrentPricePerGram int64     `json:"current_price_per_gram"`
	PriceObservedAt     time.Time `json:"price_observed_at"`
}

func (s *Service) CreateAsset(userID uint, req CreateAssetRequest) (*models.GoldAsset, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validationf("asset name is required")
	}
	if !validTypes[req.GoldType] {
		return nil, apperr.Validationf("gold type %q must be one of antam, ubs, galeri24, pegadaian, other", req.GoldType)
	}
	if req.WeightGram <= 0 {
		return nil, apperr.Validationf("weight must be positive, got %g gram", req.WeightGram)
	}
	if req.PurchasePricePerGram <= 0 {
		return nil, apperr.Validationf("purchase price per gram must be positive, got %d", req.PurchasePricePerGram)
	}
	if req.PurchaseDate.IsZero() {
		return nil, apperr.Validationf("purchase date is required")
	}
	asset := models.GoldAsset{
		UserID:               userID,
		Name:                 name,
		GoldType:             req.GoldType,
		WeightGram:           req.WeightGram,
		PurchasePricePerGram: req.PurchasePricePerGram,
		PurchaseDate:         req.PurchaseDate,
		StorageLocation:      req.StorageLocation,
		Notes:                req.Notes,
	}
	if err := s.db.Create(&asset).Error; err != nil {
		return nil, err
	}
	price, err := s.latestOrNil(s.db)
	if err != nil {
		return nil, err
	}
	s.decorate(&asset, price)
	return &asset, nil
}

// GetAsset returns one holding with its derived values recomputed against the
// latest observation; they are never persisted, so they cannot go stale.
func (s *Service) GetAsset(userID, id uint) (*models.GoldAsset, error) {
	var asset models.GoldAsset
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("gold asset %d", id)
		}
		return nil, err
	}
	price, err := s.latestOrNil(s.db)
	if err != nil {
		return nil, err
	}
	s.decorate(&asset, price)
	return &asset, nil
}

// ListAssets returns all holdings, all valued against the same price snapshot.
func (s *Service) ListAssets(userID uint) ([]models.GoldAsset, error) {
	assets := make([]models.GoldAsset, 0)
	if err := s.db.Where("user_id = ?", userID).Order("purchase_date desc, id desc").Find(&assets).Error; err != nil {
		return nil, err
	}
	price, err := s.latestOrNil(s.db)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		s.decorate(&assets[i], price)
	}
	return assets, nil
}

func (s *Service) DeleteAsset(userID, id uint) error {
	var asset models.GoldAsset
	if err := s.db.Select("id").Where("id = ? AND user_id = ?", id, userID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("gold asset %d", id)
		}
		return err
	}
	return s.db.Delete(&models.GoldAsset{}, id).Error
}

// GetSummary totals the user's holdings. The price snapshot and the holdings
// are read inside one transaction so every derived value in the response uses
// the same observation, even if a new one is recorded mid-computation.
func (s *Service) GetSummary(userID uint) (*Summary, error) {
	var sum Summary
	err := s.db.Transaction(func(tx *gorm.DB) error {
		price, err := latestPrice(tx)
		if err != nil {
			return err
		}
		var assets []models.GoldAsset
		if err := tx.Where("user_id = ?", userID).Find(&assets).Error; err != nil {
			return err
		}
		sum.CurrentPricePerGram = price.PricePerGram
		sum.PriceObservedAt = price.ObservedAt
		for _, a := range assets {
			v := Value(a.WeightGram, a.PurchasePricePerGram, price.PricePerGram)
			sum.TotalWeightGram += a.WeightGram
			sum.TotalPurchaseValue += v.PurchaseValue
			sum.TotalCurrentValue += v.CurrentValue
			sum.TotalProfitLoss += v.ProfitLoss
		}
		if sum.TotalPurchaseValue > 0 {
			sum.ProfitLossPercent = float64(sum.TotalProfitLoss) / float64(sum.TotalPurchaseValue) * 100
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// decorate fills the derived fields. Without any recorded price only the
// purchase side is known; current value and profit/loss stay zero.
func (s *Service) decorate(a *models.GoldAsset, price *models.GoldPrice) {
	a.PurchaseValue = gramValue(a.WeightGram, a.PurchasePricePerGram)
	if price == nil {
		return
	}
	v := Value(a.WeightGram, a.PurchasePricePerGram, price.PricePerGram)
	a.CurrentPricePerGram = price.PricePerGram
	a.CurrentValue = v.CurrentValue
	a.ProfitLoss = v.ProfitLoss
	a.ProfitLossPercent = v.ProfitLossPercent
}

// latestOrNil returns nil when the feed is simply empty; any other storage
// error is propagated, never masked as "no price".
func (s *Service) latestOrNil(tx *gorm.DB) (*models.GoldPrice, error) {
	price, err := latestPrice(tx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return price, nil
}
