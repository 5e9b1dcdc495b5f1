package cards

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
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cards.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.CreditCard{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(gdb)
}

func validRequest() CreateRequest {
	return CreateRequest{
		CardName:       "BCA Everyday",
		LastFourDigits: "1234",
		CreditLimit:    10_000_000,
		CurrentBalance: 2_500_000,
		BillingDate:    25,
		PaymentDueDate: 10,
	}
}

func TestCreateCard(t *testing.T) {
	s := newTestService(t)
	card, err := s.Create(1, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if card.ID == 0 || card.CardName != "BCA Everyday" || card.LastFourDigits != "1234" {
		t.Fatalf("unexpected card: %+v", card)
	}
}

func TestCreateCardValidation(t *testing.T) {
	s := newTestService(t)
	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"empty name", func(r *CreateRequest) { r.CardName = "  " }},
		{"short last four", func(r *CreateRequest) { r.LastFourDigits = "123" }},
		{"long last four", func(r *CreateRequest) { r.LastFourDigits = "12345" }},
		{"alpha last four", func(r *CreateRequest) { r.LastFourDigits = "12ab" }},
		{"zero limit", func(r *CreateRequest) { r.CreditLimit = 0 }},
		{"negative balance", func(r *CreateRequest) { r.CurrentBalance = -1 }},
		{"billing date zero", func(r *CreateRequest) { r.BillingDate = 0 }},
		{"billing date 32", func(r *CreateRequest) { r.BillingDate = 32 }},
		{"due date zero", func(r *CreateRequest) { r.PaymentDueDate = 0 }},
		{"due date 32", func(r *CreateRequest) { r.PaymentDueDate = 32 }},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		if _, err := s.Create(1, req); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestListEmptyIsEmptySlice(t *testing.T) {
	s := newTestService(t)
	list, err := s.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("empty list = %#v, want empty slice", list)
	}
}

func TestGetAndDeleteScopedToOwner(t *testing.T) {
	s := newTestService(t)
	card, err := s.Create(1, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Get(2, card.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign get: got %v, want not found", err)
	}
	if err := s.Delete(2, card.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want not found", err)
	}
	if err := s.Delete(1, card.ID); err != nil {
		t.Fatalf("own delete: %v", err)
	}
	if _, err := s.Get(1, card.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get after delete: got %v, want not found", err)
	}
}
