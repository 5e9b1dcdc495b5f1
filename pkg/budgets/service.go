// Package budgets manages month/year scoped budgets, keyed by
// (user, category, month, year), including cross-period copy.
package budgets

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create adds a budget for one category in one period. A second budget for the
// same (category, month, year) is a conflict, never a silent merge.
func (s *Service) Create(userID uint, category string, amount int64, month, year int) (*models.Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperr.Validationf("budget category is required")
	}
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, apperr.Validationf("budget amount must not be negative")
	}
	var cnt int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category = ? AND budget_month = ? AND budget_year = ?", userID, category, month, year).
		Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, apperr.Conflictf("budget for %q already exists in %d/%d", category, month, year)
	}
	b := models.Budget{
		UserID:      userID,
		Category:    category,
		Amount:      amount,
		BudgetMonth: month,
		BudgetYear:  year,
	}
	if err := s.db.Create(&b).Error; err != nil {
		if isUniqueViolation(err) { // race after the pre-check
			return nil, apperr.Conflictf("budget for %q already exists in %d/%d", category, month, year)
		}
		return nil, err
	}
	return &b, nil
}

// List returns the user's budgets, filtered to an exact period when both month
// and year are given. An empty result is an empty slice, never nil.
func (s *Service) List(userID uint, month, year *int) ([]models.Budget, error) {
	out := make([]models.Budget, 0)
	q := s.db.Where("user_id = ?", userID)
	if month != nil && year != nil {
		q = q.Where("budget_month = ? AND budget_year = ?", *month, *year).Order("category asc")
	} else {
		q = q.Order("budget_year desc, budget_month desc, category asc")
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(userID, id uint) (*models.Budget, error) {
	var b models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("budget %d", id)
		}
		return nil, err
	}
	return &b, nil
}

func (s *Service) Delete(userID, id uint) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	return s.db.Delete(&models.Budget{}, id).Error
}

// Copy creates budgets in the target period for every source-period category
// that the target does not have yet. Existing target categories are skipped and
// the returned count reflects only rows actually created, so running the copy
// twice yields N then 0. The whole copy runs in one transaction; a concurrent
// reader never observes a half-applied copy.
func (s *Service) Copy(userID uint, fromMonth, fromYear, toMonth, toYear int) (int, error) {
	if err := validatePeriod(fromMonth, fromYear); err != nil {
		return 0, err
	}
	if err := validatePeriod(toMonth, toYear); err != nil {
		return 0, err
	}
	if fromMonth == toMonth && fromYear == toYear {
		return 0, apperr.Validationf("source and target period are the same")
	}
	copied := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var source []models.Budget
		if err := tx.Where("user_id = ? AND budget_month = ? AND budget_year = ?", userID, fromMonth, fromYear).
			Order("category asc").Find(&source).Error; err != nil {
			return err
		}
		var target []models.Budget
		if err := tx.Where("user_id = ? AND budget_month = ? AND budget_year = ?", userID, toMonth, toYear).
			Find(&target).Error; err != nil {
			return err
		}
		have := make(map[string]bool, len(target))
		for _, b := range target {
			have[b.Category] = true
		}
		for _, src := range source {
			if have[src.Category] {
				continue
			}
			nb := models.Budget{
				UserID:      userID,
				Category:    src.Category,
				Amount:      src.Amount,
				BudgetMonth: toMonth,
				BudgetYear:  toYear,
			}
			if err := tx.Create(&nb).Error; err != nil {
				return err
			}
			copied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperr.Validationf("budget month %d out of range [1,12]", month)
	}
	if year < 2020 {
		return apperr.Validationf("budget year %d is too far in the past", year)
	}
	return nil
}

// local copy; postgres and sqlite word the violation differently
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
