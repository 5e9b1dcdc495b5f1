// Package cards is the flat credit-card registry. Cards are independent
// entities, deliberately not part of the account hierarchy.
package cards

import (
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

var lastFourRE = regexp.MustCompile(`^\d{4}$`)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	CardName       string
	LastFourDigits string
	CreditLimit    int64
	CurrentBalance int64
	BillingDate    int
	PaymentDueDate int
}

func (s *Service) Create(userID uint, req CreateRequest) (*models.CreditCard, error) {
	name := strings.TrimSpace(req.CardName)
	if name == "" {
		return nil, apperr.Validationf("card name is required")
	}
	if !lastFourRE.MatchString(req.LastFourDigits) {
		return nil, apperr.Validationf("last four digits must be exactly 4 digits")
	}
	if req.CreditLimit <= 0 {
		return nil, apperr.Validationf("credit limit must be positive")
	}
	if req.CurrentBalance < 0 {
		return nil, apperr.Validationf("current balance must not be negative")
	}
	if req.BillingDate < 1 || req.BillingDate > 31 {
		return nil, apperr.Validationf("billing date %d out of range [1,31]", req.BillingDate)
	}
	if req.PaymentDueDate < 1 || req.PaymentDueDate > 31 {
		return nil, apperr.Validationf("payment due date %d out of range [1,31]", req.PaymentDueDate)
	}
	card := models.CreditCard{
		UserID:         userID,
		CardName:       name,
		LastFourDigits: req.LastFourDigits,
		CreditLimit:    req.CreditLimit,
		CurrentBalance: req.CurrentBalance,
		BillingDate:    req.BillingDate,
		PaymentDueDate: req.PaymentDueDate,
	}
	if err := s.db.Create(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *Service) List(userID uint) ([]models.CreditCard, error) {
	out := make([]models.CreditCard, 0)
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(userID, id uint) (*models.CreditCard, error) {
	var card models.CreditCard
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("credit card %d", id)
		}
		return nil, err
	}
	return &card, nil
}

func (s *Service) Delete(userID, id uint) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	return s.db.Delete(&models.CreditCard{}, id).Error
}
