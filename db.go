package main

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/accounts"
	"kantong/pkg/budgets"
	"kantong/pkg/cards"
	"kantong/pkg/gold"
)

var db *gorm.DB

// service singletons wired over the shared DB handle
var (
	accountSvc *accounts.Service
	budgetSvc  *budgets.Service
	goldSvc    *gold.Service
	priceFeed  *gold.PriceFeed
	cardSvc    *cards.Service
)

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := strings.ToLower(os.Getenv("DB_AUTO_MIGRATE")); v == "false" || v == "0" || v == "no" {
		shouldMigrate = false
	}
	if shouldMigrate {
		autoMigrateAll(db)
	}
	seedDB()
	initServices()
}

// autoMigrateAll migrates models individually so a failure on one doesn't
// block others. Roles go first so the users FK can be applied safely.
func autoMigrateAll(gdb *gorm.DB) {
	for _, m := range []struct {
		name  string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"accounts", &models.Account{}},
		{"budgets", &models.Budget{}},
		{"gold_assets", &models.GoldAsset{}},
		{"gold_prices", &models.GoldPrice{}},
		{"credit_cards", &models.CreditCard{}},
	} {
		if err := gdb.AutoMigrate(m.model); err != nil {
			log.Printf("migration warning (%s): %v", m.name, err)
		}
	}
}

func initServices() {
	priceFeed = gold.NewPriceFeed(db)
	accountSvc = accounts.NewService(db)
	budgetSvc = budgets.NewService(db)
	goldSvc = gold.NewService(db, priceFeed)
	cardSvc = cards.NewService(db)
}

// seedDB ensures the master roles and the admin user exist. The gold price
// feed is deliberately NOT seeded here: an empty feed is a configuration error
// the operator resolves explicitly (scripts/seed_gold_price).
func seedDB() {
	roles := []models.Role{
		{Name: "administrator", Description: "full access"},
		{Name: "user", Description: "regular user"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		rid := role.ID
		admin := models.User{Username: "admin", RoleID: &rid}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}
}
