// Package accounts maintains the per-user account hierarchy: top-level
// accounts and their pockets (sub-accounts), with balance roll-up.
package accounts

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

var validTypes = map[models.AccountType]bool{
	models.AccountTypeBank:     true,
	models.AccountTypeWallet:   true,
	models.AccountTypeCash:     true,
	models.AccountTypePaylater: true,
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	Name            string
	Type            models.AccountType
	Currency        string
	ParentAccountID *uint
}

type UpdateRequest struct {
	Name            string
	Currency        string
	ParentAccountID *uint // reparent when set
	DetachParent    bool  // promote a pocket to a top-level account
}

// Create opens a new account or pocket. The balance always starts at zero;
// no balance input is accepted here.
func (s *Service) Create(userID uint, req CreateRequest) (*models.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validationf("account name is required")
	}
	if !validTypes[req.Type] {
		return nil, apperr.Validationf("account type %q must be one of bank, wallet, cash, paylater", req.Type)
	}
	currency := req.Currency
	if currency == "" {
		currency = "IDR"
	}
	if req.ParentAccountID != nil {
		if err := s.requireOwned(userID, *req.ParentAccountID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Validationf("parent account %d does not exist", *req.ParentAccountID)
			}
			return nil, err
		}
	}
	var cnt int64
	if err := s.db.Model(&models.Account{}).Where("user_id = ? AND name = ?", userID, name).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, apperr.Validationf("account name %q is already in use", name)
	}
	acc := models.Account{
		UserID:          userID,
		Name:            name,
		Type:            req.Type,
		Currency:        currency,
		Balance:         0,
		ParentAccountID: req.ParentAccountID,
	}
	if err := s.db.Create(&acc).Error; err != nil {
		if isUniqueViolation(err) { // race after the pre-check
			return nil, apperr.Validationf("account name %q is already in use", name)
		}
		return nil, err
	}
	return &acc, nil
}

// Get returns one account with its pockets attached.
func (s *Service) Get(userID, id uint) (*models.Account, error) {
	var acc models.Account
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("account %d", id)
		}
		return nil, err
	}
	var subs []models.Account
	if err := s.db.Where("parent_account_id = ?", acc.ID).Order("created_at desc").Find(&subs).Error; err != nil {
		return nil, err
	}
	acc.SubAccounts = subs
	return &acc, nil
}

// List returns the user's top-level accounts with pockets nested under their
// parents.
func (s *Service) List(userID uint) ([]models.Account, error) {
	var all []models.Account
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&all).Error; err != nil {
		return nil, err
	}
	parents := make([]models.Account, 0, len(all))
	subsByParent := make(map[uint][]models.Account)
	for _, acc := range all {
		if acc.ParentAccountID == nil {
			parents = append(parents, acc)
		} else {
			subsByParent[*acc.ParentAccountID] = append(subsByParent[*acc.ParentAccountID], acc)
		}
	}
	for i := range parents {
		parents[i].SubAccounts = subsByParent[parents[i].ID]
	}
	return parents, nil
}

// Update renames an account, changes its currency, or reparents it. Reparenting
// validates that the parent graph stays a forest.
func (s *Service) Update(userID, id uint, req UpdateRequest) (*models.Account, error) {
	var acc models.Account
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("account %d", id)
		}
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" && name != acc.Name {
		var cnt int64
		if err := s.db.Model(&models.Account{}).Where("user_id = ? AND name = ? AND id <> ?", userID, name, id).Count(&cnt).Error; err != nil {
			return nil, err
		}
		if cnt > 0 {
			return nil, apperr.Validationf("account name %q is already in use", name)
		}
		acc.Name = name
	}
	if req.Currency != "" {
		acc.Currency = req.Currency
	}
	switch {
	case req.DetachParent:
		acc.ParentAccountID = nil
	case req.ParentAccountID != nil:
		if err := s.validateReparent(userID, id, *req.ParentAccountID); err != nil {
			return nil, err
		}
		acc.ParentAccountID = req.ParentAccountID
	}
	if err := s.db.Save(&acc).Error; err != nil {
		if isUniqueViolation(err) { // race after the pre-check
			return nil, apperr.Validationf("account name %q is already in use", acc.Name)
		}
		return nil, err
	}
	return s.Get(userID, id)
}

// Delete removes an account. Deleting a parent is rejected while pockets still
// reference it.
func (s *Service) Delete(userID, id uint) error {
	if err := s.requireOwned(userID, id); err != nil {
		return err
	}
	var children int64
	if err := s.db.Model(&models.Account{}).Where("parent_account_id = ?", id).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return apperr.Conflictf("account %d still has %d pocket(s); delete them first", id, children)
	}
	return s.db.Delete(&models.Account{}, id).Error
}

// EffectiveBalance returns the account's own balance plus the recursive sum of
// its descendants' balances. The traversal is over an id-indexed arena with a
// derived children index, so each node is visited once.
func (s *Service) EffectiveBalance(userID, id uint) (int64, error) {
	var all []models.Account
	if err := s.db.Where("user_id = ?", userID).Find(&all).Error; err != nil {
		return 0, err
	}
	byID := make(map[uint]*models.Account, len(all))
	children := make(map[uint][]uint)
	for i := range all {
		byID[all[i].ID] = &all[i]
		if p := all[i].ParentAccountID; p != nil {
			children[*p] = append(children[*p], all[i].ID)
		}
	}
	if _, ok := byID[id]; !ok {
		return 0, apperr.NotFoundf("account %d", id)
	}
	var sum func(uint) int64
	sum = func(nodeID uint) int64 {
		total := byID[nodeID].Balance
		for _, childID := range children[nodeID] {
			total += sum(childID)
		}
		return total
	}
	return sum(id), nil
}

// validateReparent rejects self-parenting, foreign or missing parents, and any
// reparent that would introduce a cycle (walking parent pointers from the new
// parent must never reach the account being moved).
func (s *Service) validateReparent(userID, id, newParentID uint) error {
	if newParentID == id {
		return apperr.Validationf("account cannot be its own parent")
	}
	var all []models.Account
	if err := s.db.Where("user_id = ?", userID).Find(&all).Error; err != nil {
		return err
	}
	parentOf := make(map[uint]*uint, len(all))
	for _, acc := range all {
		parentOf[acc.ID] = acc.ParentAccountID
	}
	if _, ok := parentOf[newParentID]; !ok {
		return apperr.Validationf("parent account %d does not exist", newParentID)
	}
	cur := &newParentID
	for cur != nil {
		if *cur == id {
			return apperr.Validationf("reparenting account %d under %d would create a cycle", id, newParentID)
		}
		cur = parentOf[*cur]
	}
	return nil
}

func (s *Service) requireOwned(userID, id uint) error {
	var acc models.Account
	if err := s.db.Select("id").Where("id = ? AND user_id = ?", id, userID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("account %d", id)
		}
		return err
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
