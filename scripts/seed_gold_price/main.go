// Seeds the gold price feed with an initial observation. The feed must be
// seeded explicitly before valuations work; the server never invents a price.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/gold"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./scripts/seed_gold_price <price_per_gram> [YYYY-MM-DD] [source]")
		os.Exit(2)
	}
	price, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || price <= 0 {
		log.Fatalf("bad price %q", os.Args[1])
	}
	observedAt := time.Now()
	if len(os.Args) > 2 {
		t, err := time.Parse("2006-01-02", os.Args[2])
		if err != nil {
			log.Fatalf("bad date %q: %v", os.Args[2], err)
		}
		observedAt = t
	}
	source := "seed"
	if len(os.Args) > 3 {
		source = os.Args[3]
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.GoldPrice{}); err != nil {
		log.Printf("migration warning (gold_prices): %v", err)
	}

	obs, err := gold.NewPriceFeed(db).Record(price, observedAt, source)
	if err != nil {
		log.Fatalf("failed to record price: %v", err)
	}
	fmt.Printf("recorded %d/gram at %s (id=%d)\n", obs.PricePerGram, obs.ObservedAt.Format("2006-01-02"), obs.ID)
}
