package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"cardvault/internal/cardcache"
	"cardvault/internal/flight"
	"cardvault/internal/meta"
	"cardvault/internal/scryfall"
	"cardvault/pkg/database"
	"cardvault/pkg/utils"
)

func main() {
	kind := flag.String("kind", cardcache.KindDefaultCards, "dataset kind (default_cards or rulings)")
	force := flag.Bool("force", false, "re-download even when the remote file is unchanged")
	fromDisk := flag.Bool("from-disk", false, "rebuild indexes from the existing local file, no network")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	cfg := utils.LoadCacheConfig()
	cache, err := cardcache.New(cardcache.Config{
		DataDir: cfg.DataDir,
		Client:  scryfall.NewClient(cfg.BaseURL, cfg.UserAgent, cfg.RPS, cfg.Retries),
		Meta:    meta.NewRepo(db),
		MaxAge:  cfg.MaxAge,
		Cluster: flight.NewPgLocker(cfg.PgLockDSN),
	})
	if err != nil {
		log.Fatalf("cache init failed: %v", err)
	}

	if *fromDisk {
		n, err := cache.LoadAndIndexWithProgress(ctx, *kind, func(records int) {
			log.Printf("[sync-cards] %s: %d records indexed", *kind, records)
		})
		if err != nil {
			log.Fatalf("index failed: %v", err)
		}
		log.Printf("[sync-cards] %s: done, %d records (epoch %d)", *kind, n, cache.Epoch())
		return
	}

	res, err := cache.Sync(ctx, *kind, *force, func(written, total int64) {
		if total > 0 {
			log.Printf("[sync-cards] %s: %s of %s (%.1f%%)",
				*kind, humanBytes(written), humanBytes(total), float64(written)*100/float64(total))
			return
		}
		log.Printf("[sync-cards] %s: %s downloaded", *kind, humanBytes(written))
	})
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	switch res.Status {
	case "locked":
		log.Printf("[sync-cards] %s: another sync is running, nothing to do", *kind)
	case "not_modified":
		log.Printf("[sync-cards] %s: already up to date (%d records, epoch %d)",
			*kind, res.RecordCount, res.Epoch)
	default:
		log.Printf("[sync-cards] %s: synced %d records, %s downloaded (epoch %d)",
			*kind, res.RecordCount, humanBytes(res.BytesDownloaded), res.Epoch)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
