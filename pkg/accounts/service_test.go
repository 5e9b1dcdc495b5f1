package accounts

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/apperr"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "accounts.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(gdb)
}

func mustCreate(t *testing.T, s *Service, userID uint, req CreateRequest) *models.Account {
	t.Helper()
	acc, err := s.Create(userID, req)
	if err != nil {
		t.Fatalf("create %q failed: %v", req.Name, err)
	}
	return acc
}

func setBalance(t *testing.T, s *Service, id uint, balance int64) {
	t.Helper()
	if err := s.db.Model(&models.Account{}).Where("id = ?", id).Update("balance", balance).Error; err != nil {
		t.Fatalf("set balance: %v", err)
	}
}

func TestCreateStartsWithZeroBalance(t *testing.T) {
	s := newTestService(t)
	acc := mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank, Currency: "IDR"})
	if acc.Balance != 0 {
		t.Fatalf("new account balance = %d, want 0", acc.Balance)
	}
	if acc.Currency != "IDR" {
		t.Fatalf("currency = %q", acc.Currency)
	}
}

func TestCreateDefaultsCurrency(t *testing.T) {
	s := newTestService(t)
	acc := mustCreate(t, s, 1, CreateRequest{Name: "Dompet", Type: models.AccountTypeWallet})
	if acc.Currency != "IDR" {
		t.Fatalf("currency = %q, want IDR default", acc.Currency)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	s := newTestService(t)
	for _, typ := range []models.AccountType{"credit_card", "investment", "", "Bank"} {
		_, err := s.Create(1, CreateRequest{Name: "X" + string(typ), Type: typ})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("type %q: got %v, want validation error", typ, err)
		}
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	if _, err := s.Create(1, CreateRequest{Name: "BCA", Type: models.AccountTypeWallet}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("duplicate name: got %v, want validation error", err)
	}
	// another owner may reuse the name
	if _, err := s.Create(2, CreateRequest{Name: "BCA", Type: models.AccountTypeBank}); err != nil {
		t.Fatalf("same name, other owner: %v", err)
	}
}

func TestCreatePocketValidatesParent(t *testing.T) {
	s := newTestService(t)
	missing := uint(999)
	if _, err := s.Create(1, CreateRequest{Name: "Pocket", Type: models.AccountTypeBank, ParentAccountID: &missing}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing parent: got %v, want validation error", err)
	}
	foreign := mustCreate(t, s, 2, CreateRequest{Name: "Other", Type: models.AccountTypeBank})
	if _, err := s.Create(1, CreateRequest{Name: "Pocket", Type: models.AccountTypeBank, ParentAccountID: &foreign.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("foreign parent: got %v, want validation error", err)
	}
}

func TestListNestsPockets(t *testing.T) {
	s := newTestService(t)
	parent := mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	mustCreate(t, s, 1, CreateRequest{Name: "Tabungan", Type: models.AccountTypeBank, ParentAccountID: &parent.ID})
	mustCreate(t, s, 1, CreateRequest{Name: "Darurat", Type: models.AccountTypeBank, ParentAccountID: &parent.ID})
	mustCreate(t, s, 1, CreateRequest{Name: "Cash", Type: models.AccountTypeCash})

	list, err := s.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d top-level accounts, want 2", len(list))
	}
	for _, acc := range list {
		if acc.Name == "BCA" && len(acc.SubAccounts) != 2 {
			t.Fatalf("BCA has %d pockets, want 2", len(acc.SubAccounts))
		}
		if acc.Name == "Cash" && len(acc.SubAccounts) != 0 {
			t.Fatalf("Cash has pockets: %+v", acc.SubAccounts)
		}
	}
}

func TestGetScopedToOwner(t *testing.T) {
	s := newTestService(t)
	acc := mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	if _, err := s.Get(2, acc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign get: got %v, want not found", err)
	}
	if _, err := s.Get(1, acc.ID); err != nil {
		t.Fatalf("own get: %v", err)
	}
}

func TestDeleteParentRejectedWhileChildrenExist(t *testing.T) {
	s := newTestService(t)
	parent := mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	pocket := mustCreate(t, s, 1, CreateRequest{Name: "Tabungan", Type: models.AccountTypeBank, ParentAccountID: &parent.ID})

	if err := s.Delete(1, parent.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete parent with pocket: got %v, want conflict", err)
	}
	if err := s.Delete(1, pocket.ID); err != nil {
		t.Fatalf("delete pocket: %v", err)
	}
	if err := s.Delete(1, parent.ID); err != nil {
		t.Fatalf("delete parent after pocket gone: %v", err)
	}
}

func TestEffectiveBalanceRollsUp(t *testing.T) {
	s := newTestService(t)
	parent := mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	pocket := mustCreate(t, s, 1, CreateRequest{Name: "Tabungan", Type: models.AccountTypeBank, ParentAccountID: &parent.ID})
	grand := mustCreate(t, s, 1, CreateRequest{Name: "Sub", Type: models.AccountTypeBank, ParentAccountID: &pocket.ID})
	other := mustCreate(t, s, 1, CreateRequest{Name: "Cash", Type: models.AccountTypeCash})

	setBalance(t, s, parent.ID, 1000)
	setBalance(t, s, pocket.ID, 200)
	setBalance(t, s, grand.ID, 30)
	setBalance(t, s, other.ID, 50000)

	got, err := s.EffectiveBalance(1, parent.ID)
	if err != nil {
		t.Fatalf("effective balance: %v", err)
	}
	if got != 1230 {
		t.Fatalf("effective balance = %d, want 1230", got)
	}
	// a standalone account contributes nothing to the parent's roll-up
	got, err = s.EffectiveBalance(1, other.ID)
	if err != nil {
		t.Fatalf("effective balance (standalone): %v", err)
	}
	if got != 50000 {
		t.Fatalf("standalone effective balance = %d, want 50000", got)
	}
	// starting mid-tree only counts that subtree
	got, err = s.EffectiveBalance(1, pocket.ID)
	if err != nil {
		t.Fatalf("effective balance (pocket): %v", err)
	}
	if got != 230 {
		t.Fatalf("pocket effective balance = %d, want 230", got)
	}
}

func TestUpdateRenameRejectsDuplicateName(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, 1, CreateRequest{Name: "BCA", Type: models.AccountTypeBank})
	other := mustCreate(t, s, 1, CreateRequest{Name: "Mandiri", Type: models.AccountTypeBank})

	if _, err := s.Update(1, other.ID, UpdateRequest{Name: "BCA"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("rename to taken name: got %v, want validation error", err)
	}
	// keeping the current name is not a collision with itself
	if _, err := s.Update(1, other.ID, UpdateRequest{Name: "Mandiri", Currency: "USD"}); err != nil {
		t.Fatalf("rename to own name: %v", err)
	}
}

func TestReparentKeepsForest(t *testing.T) {
	s := newTestService(t)
	a := mustCreate(t, s, 1, CreateRequest{Name: "A", Type: models.AccountTypeBank})
	b := mustCreate(t, s, 1, CreateRequest{Name: "B", Type: models.AccountTypeBank, ParentAccountID: &a.ID})

	if _, err := s.Update(1, a.ID, UpdateRequest{ParentAccountID: &b.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("cycle reparent: got %v, want validation error", err)
	}
	if _, err := s.Update(1, a.ID, UpdateRequest{ParentAccountID: &a.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("self reparent: got %v, want validation error", err)
	}

	// moving b out to top level is fine
	updated, err := s.Update(1, b.ID, UpdateRequest{DetachParent: true})
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if updated.ParentAccountID != nil {
		t.Fatalf("detached account still has parent %v", *updated.ParentAccountID)
	}
}
