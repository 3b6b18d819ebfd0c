// Package cardcache owns the local mirror of the provider's bulk card
// data: it syncs the files, builds the lookup indexes, and serves every
// read through an atomically swapped snapshot.
package cardcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"cardvault/internal/cardindex"
	"cardvault/internal/events"
	"cardvault/internal/flight"
	"cardvault/internal/meta"
	"cardvault/internal/oracle"
	"cardvault/internal/scryfall"
	"cardvault/pkg/models"
)

// Dataset kinds mirrored locally.
const (
	KindDefaultCards = "default_cards"
	KindRulings      = "rulings"
)

func validKind(kind string) bool {
	return kind == KindDefaultCards || kind == KindRulings
}

type Config struct {
	DataDir  string
	Client   *scryfall.Client
	Meta     *meta.Repo
	Selector oracle.SelectorConfig
	// MaxAge is how old the on-disk artifact may grow before Stale
	// reports true. Zero disables staleness checks.
	MaxAge time.Duration
	// Cluster is optional cross-replica coordination; nil means
	// single-replica deployment.
	Cluster *flight.PgLocker
	// Hub is optional; nil drops publish/progress events.
	Hub *events.Hub
}

// Cache is safe for concurrent use. Reads never block on syncs: they go
// through pointers swapped only after a full rebuild succeeds.
type Cache struct {
	cfg     Config
	flights *flight.Keyed

	// publishMu serializes epoch assignment and pointer swaps so each
	// published generation bumps the epoch by exactly one.
	publishMu sync.Mutex
	epoch     atomic.Int64

	snap    atomic.Pointer[cardindex.Snapshot]
	rulings atomic.Pointer[rulingsIndex]
}

func New(cfg Config) (*Cache, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("cardcache: DataDir is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("cardcache: Client is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if cfg.Selector.PreferredLang == "" {
		cfg.Selector = oracle.DefaultSelectorConfig()
	}
	return &Cache{
		cfg:     cfg,
		flights: flight.NewKeyed(),
	}, nil
}

// DatasetPath returns where kind's bulk file lives on disk.
func (c *Cache) DatasetPath(kind string) string {
	return filepath.Join(c.cfg.DataDir, "scryfall_"+kind+".json")
}

// Epoch returns the current published generation; 0 means nothing has
// been published yet.
func (c *Cache) Epoch() int64 { return c.epoch.Load() }

// Ready reports whether a card snapshot is live.
func (c *Cache) Ready() bool { return c.snap.Load() != nil }

// Snapshot returns the live card index generation, or nil before the
// first publish. Callers may hold it across requests; it never mutates.
func (c *Cache) Snapshot() *cardindex.Snapshot { return c.snap.Load() }

// Stale reports whether kind's on-disk artifact is missing or older
// than the configured max age.
func (c *Cache) Stale(kind string) bool {
	fi, err := os.Stat(c.DatasetPath(kind))
	if err != nil {
		return true
	}
	if c.cfg.MaxAge <= 0 {
		return false
	}
	return time.Since(fi.ModTime()) > c.cfg.MaxAge
}

// Resolve maps (set, collector number, name) to an oracle id through
// the published snapshot.
func (c *Cache) Resolve(setCode, collectorNumber, name string) (string, bool) {
	s := c.snap.Load()
	if s == nil {
		return "", false
	}
	return s.Resolve(setCode, collectorNumber, name)
}

// ResolvePrint runs the resolution chain and keeps the printing.
func (c *Cache) ResolvePrint(setCode, collectorNumber, name string) *models.Print {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	return s.ResolvePrint(setCode, collectorNumber, name)
}

// ExactPrint looks up one printing by exact set and collector number.
func (c *Cache) ExactPrint(setCode, collectorNumber, nameHint string) *models.Print {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	return s.ExactPrint(setCode, collectorNumber, nameHint)
}

// Oracle returns the representative record for an oracle id.
func (c *Cache) Oracle(oracleID string) *models.OracleCard {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	return s.Oracle(oracleID)
}

// PrintsForOracle lists every printing of an identity.
func (c *Cache) PrintsForOracle(oracleID string) []*models.Print {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	return s.PrintsForOracle(oracleID)
}

// UniqueOracleByName resolves a globally unambiguous card name.
func (c *Cache) UniqueOracleByName(name string) (string, bool) {
	s := c.snap.Load()
	if s == nil {
		return "", false
	}
	return s.UniqueOracleByName(name)
}

// Candidates lists same-set printings matching a name, for manual picks.
func (c *Cache) Candidates(setCode, name string) []*models.Print {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	return s.CandidatesBySetAndName(setCode, name)
}

// SearchPrints runs a token-AND name search over retained printings.
func (c *Cache) SearchPrints(query, setCode string, limit, offset int) ([]*models.Print, int) {
	s := c.snap.Load()
	if s == nil {
		return nil, 0
	}
	return s.SearchPrints(query, setCode, limit, offset)
}

// LivePrint asks the provider directly, for printings newer than the
// local snapshot.
func (c *Cache) LivePrint(ctx context.Context, setCode, collectorNumber, nameHint string) (*scryfall.LivePrintResult, error) {
	return c.cfg.Client.LivePrint(ctx, setCode, collectorNumber, nameHint)
}
