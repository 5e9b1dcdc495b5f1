// Price-feed ingestion job. Scans a drop directory for CSV files of gold
// price observations (one `date,price_per_gram[,source]` line each) and
// appends them to the price feed. With -watch it keeps running and ingests
// files as they appear. Re-reading a file is safe: observations already in
// the feed are skipped, never rewritten.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kantong/models"
	"kantong/pkg/gold"
)

var verbose bool

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func main() {
	dirFlag := flag.String("dir", "prices", "directory to scan for price CSV files")
	fileFlag := flag.String("file", "", "ingest a single file and exit")
	watch := flag.Bool("watch", false, "watch directory for new files")
	dryRun := flag.Bool("dry-run", false, "parse and report without touching the DB")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-line logging")
	flag.Parse()

	if *dryRun {
		files := listPriceFiles(*dirFlag)
		if *fileFlag != "" {
			files = []string{filepath.Base(*fileFlag)}
		}
		log.Printf("Dry-run: %d candidate file(s) in %s", len(files), *dirFlag)
		for _, f := range files {
			obs, err := parsePriceFile(filepath.Join(*dirFlag, f))
			if err != nil {
				log.Printf("%s: %v", f, err)
				continue
			}
			log.Printf("%s: %d observation(s)", f, len(obs))
		}
		return
	}

	gdb := mustInitDBFromEnv()
	if err := gdb.AutoMigrate(&models.GoldPrice{}); err != nil {
		log.Printf("migration warning (gold_prices): %v", err)
	}
	feed := gold.NewPriceFeed(gdb)

	if *fileFlag != "" {
		ingestFile(feed, *fileFlag)
		return
	}

	for _, f := range listPriceFiles(*dirFlag) {
		ingestFile(feed, filepath.Join(*dirFlag, f))
	}
	if !*watch {
		return
	}
	if err := watchDirectory(*dirFlag, feed); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func listPriceFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isPriceFile(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isPriceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".txt"
}

// watchDirectory ingests files as they land, debounced so partially written
// files settle before they are read.
func watchDirectory(dir string, feed *gold.PriceFeed) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if isPriceFile(name) {
					pending[name] = time.Now()
				}
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 300*time.Millisecond { // stable
					ingestFile(feed, filepath.Join(dir, name))
					delete(pending, name)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

type observation struct {
	at     time.Time
	price  int64
	source string
}

func ingestFile(feed *gold.PriceFeed, path string) {
	obs, err := parsePriceFile(path)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return
	}
	recorded, skipped := 0, 0
	for _, o := range obs {
		seen, err := feed.Seen(o.price, o.at, o.source)
		if err != nil {
			log.Printf("%s: dedup check failed: %v", path, err)
			return
		}
		if seen {
			skipped++
			continue
		}
		if _, err := feed.Record(o.price, o.at, o.source); err != nil {
			log.Printf("%s: record failed: %v", path, err)
			return
		}
		recorded++
		if verbose {
			log.Printf("recorded %d/gram at %s (%s)", o.price, o.at.Format(time.RFC3339), o.source)
		}
	}
	log.Printf("%s: recorded %d, skipped %d", path, recorded, skipped)
}

func parsePriceFile(path string) ([]observation, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defaultSource := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var out []observation
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			log.Printf("%s:%d: want date,price[,source], got %q", path, lineNo, line)
			continue
		}
		at, err := parseObservedAt(strings.TrimSpace(parts[0]))
		if err != nil {
			log.Printf("%s:%d: bad date %q: %v", path, lineNo, parts[0], err)
			continue
		}
		price, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || price <= 0 {
			log.Printf("%s:%d: bad price %q", path, lineNo, parts[1])
			continue
		}
		source := defaultSource
		if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
			source = strings.TrimSpace(parts[2])
		}
		out = append(out, observation{at: at, price: price, source: source})
	}
	return out, scanner.Err()
}

func parseObservedAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
