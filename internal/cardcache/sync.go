package cardcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardvault/internal/cardindex"
	"cardvault/internal/events"
	"cardvault/internal/flight"
	"cardvault/internal/oracle"
	"cardvault/internal/scryfall"
	"cardvault/internal/stream"
	"cardvault/pkg/models"
)

// progressEvery is how many parsed records pass between progress
// callbacks during indexing.
const progressEvery = 10000

// Sync refreshes one dataset end to end: catalog lookup, conditional
// download, parse, index, publish. It never blocks behind another sync
// of the same kind; the loser gets a "locked" result immediately.
// Readers keep the previous snapshot until the new one is fully built.
func (c *Cache) Sync(ctx context.Context, kind string, force bool, progress func(written, total int64)) (*models.SyncResult, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("unknown dataset kind %q", kind)
	}

	if err := c.flights.TryAcquire(kind); err != nil {
		if errors.Is(err, flight.ErrLocked) {
			return &models.SyncResult{Kind: kind, Status: models.SyncStatusLocked, Epoch: c.Epoch()}, nil
		}
		return nil, err
	}
	defer c.flights.Release(kind)

	release, ok, err := c.cfg.Cluster.TryAcquire(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("cluster lock %q: %w", kind, err)
	}
	if !ok {
		log.Printf("[cache] %s: another replica holds the sync lock", kind)
		return &models.SyncResult{Kind: kind, Status: models.SyncStatusLocked, Epoch: c.Epoch()}, nil
	}
	defer release()

	runID := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	log.Printf("[cache] %s: sync %s started (force=%v)", kind, runID, force)

	ds, err := c.cfg.Client.Dataset(ctx, kind)
	if err != nil {
		c.markError(ctx, kind, err)
		return nil, fmt.Errorf("catalog lookup %q: %w", kind, err)
	}

	// Cheap freshness check: when the catalog timestamp matches the last
	// processed one, skip the download entirely.
	if !force && c.loaded(kind) && c.cfg.Meta != nil {
		m, err := c.cfg.Meta.Get(ctx, kind)
		if err == nil && m != nil && m.RemoteUpdatedAt != nil && m.RemoteUpdatedAt.Equal(ds.UpdatedAt) {
			return c.finishNotModified(ctx, kind, runID, ds, m.ETag), nil
		}
	}

	path := c.DatasetPath(kind)
	dl, err := c.cfg.Client.StreamDownloadTo(ctx, path, ds.DownloadURI, scryfall.DownloadOptions{
		Force:    force,
		Progress: c.progressFunc(kind, runID, progress),
	})
	if err != nil {
		c.markError(ctx, kind, err)
		return nil, fmt.Errorf("download %q: %w", kind, err)
	}

	if dl.Status == models.DownloadStatusNotModified && c.loaded(kind) {
		return c.finishNotModified(ctx, kind, runID, ds, dl.ETag), nil
	}

	records, epoch, err := c.loadAndPublish(ctx, kind, nil)
	if err != nil {
		c.markError(ctx, kind, err)
		return nil, err
	}

	c.putMeta(ctx, &models.DatasetMeta{
		Kind:             kind,
		DownloadURI:      ds.DownloadURI,
		RemoteUpdatedAt:  &ds.UpdatedAt,
		ETag:             dl.ETag,
		LocalProcessedAt: nowPtr(),
		RecordCount:      records,
		Status:           models.SyncStatusOK,
	})
	log.Printf("[cache] %s: sync %s published epoch %d (%d records, %d bytes)",
		kind, runID, epoch, records, dl.Bytes)
	return &models.SyncResult{
		Kind:            kind,
		RunID:           runID,
		Status:          models.SyncStatusOK,
		RecordCount:     records,
		BytesDownloaded: dl.Bytes,
		Epoch:           epoch,
	}, nil
}

// finishNotModified records the no-change outcome. The row is still
// overwritten so staleness tooling sees when the check last ran.
func (c *Cache) finishNotModified(ctx context.Context, kind, runID string, ds *scryfall.BulkDataset, etag string) *models.SyncResult {
	records := c.recordCount(kind)
	c.putMeta(ctx, &models.DatasetMeta{
		Kind:             kind,
		DownloadURI:      ds.DownloadURI,
		RemoteUpdatedAt:  &ds.UpdatedAt,
		ETag:             etag,
		LocalProcessedAt: nowPtr(),
		RecordCount:      records,
		Status:           models.SyncStatusNotModified,
	})
	log.Printf("[cache] %s: sync %s up to date (epoch %d)", kind, runID, c.Epoch())
	return &models.SyncResult{
		Kind:        kind,
		RunID:       runID,
		Status:      models.SyncStatusNotModified,
		RecordCount: records,
		Epoch:       c.Epoch(),
	}
}

// EnsureLoaded makes kind queryable: a no-op when already published,
// an index rebuild when the bulk file is on disk, a full sync otherwise.
func (c *Cache) EnsureLoaded(ctx context.Context, kind string) error {
	if !validKind(kind) {
		return fmt.Errorf("unknown dataset kind %q", kind)
	}
	if c.loaded(kind) {
		return nil
	}
	if _, err := os.Stat(c.DatasetPath(kind)); err == nil {
		_, _, err := c.loadAndPublish(ctx, kind, nil)
		return err
	}
	_, err := c.Sync(ctx, kind, false, nil)
	return err
}

// LoadIfStale refreshes kind when its artifact is missing or too old,
// and otherwise just makes sure it is loaded.
func (c *Cache) LoadIfStale(ctx context.Context, kind string) error {
	if c.Stale(kind) {
		_, err := c.Sync(ctx, kind, false, nil)
		return err
	}
	return c.EnsureLoaded(ctx, kind)
}

// LoadAndIndexWithProgress rebuilds kind's indexes from the on-disk
// file, reporting parsed-record counts as it goes.
func (c *Cache) LoadAndIndexWithProgress(ctx context.Context, kind string, report func(records int)) (int, error) {
	if !validKind(kind) {
		return 0, fmt.Errorf("unknown dataset kind %q", kind)
	}
	records, _, err := c.loadAndPublish(ctx, kind, report)
	return records, err
}

func (c *Cache) loaded(kind string) bool {
	if kind == KindRulings {
		return c.rulings.Load() != nil
	}
	return c.snap.Load() != nil
}

func (c *Cache) recordCount(kind string) int {
	if kind == KindRulings {
		if r := c.rulings.Load(); r != nil {
			return r.entries
		}
		return 0
	}
	if s := c.snap.Load(); s != nil {
		return s.PrintCount()
	}
	return 0
}

// loadAndPublish parses kind's bulk file and swaps in the resulting
// generation. The epoch bump and pointer swap happen under publishMu so
// concurrent loads of different kinds still publish distinct epochs.
func (c *Cache) loadAndPublish(ctx context.Context, kind string, report func(records int)) (int, int64, error) {
	path := c.DatasetPath(kind)
	start := time.Now()

	var (
		records int
		err     error
		cards   *builtCards
		rules   *builtRulings
	)
	if kind == KindRulings {
		rules, records, err = c.parseRulings(ctx, path, report)
	} else {
		cards, records, err = c.parseCards(ctx, path, report)
	}
	if err != nil {
		return 0, 0, err
	}

	c.publishMu.Lock()
	epoch := c.epoch.Load() + 1
	if kind == KindRulings {
		c.rulings.Store(newRulingsIndex(rules.byOracle, records, epoch))
	} else {
		cards.builder.SetOracles(cards.selector.Oracles())
		c.snap.Store(cards.builder.Build(epoch))
	}
	c.epoch.Store(epoch)
	c.publishMu.Unlock()

	log.Printf("[cache] %s: indexed %d records in %s (epoch %d)",
		kind, records, time.Since(start).Round(time.Millisecond), epoch)
	if c.cfg.Hub != nil {
		c.cfg.Hub.BroadcastJSON(events.NewPublishEvent(kind, epoch, records))
	}
	return records, epoch, nil
}

type builtCards struct {
	builder  *cardindex.Builder
	selector *oracle.Selector
}

func (c *Cache) parseCards(ctx context.Context, path string, report func(int)) (*builtCards, int, error) {
	r, err := stream.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	out := &builtCards{
		builder:  cardindex.NewBuilder(c.cfg.Selector.PreferredLang),
		selector: oracle.NewSelector(c.cfg.Selector),
	}
	for {
		var card models.RawCard
		err := r.Next(&card)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, r.Count(), err
		}
		out.builder.AddPrint(&card)
		out.selector.Offer(&card)

		if r.Count()%progressEvery == 0 {
			if report != nil {
				report(r.Count())
			}
			if err := ctx.Err(); err != nil {
				return nil, r.Count(), err
			}
		}
	}
	if report != nil {
		report(r.Count())
	}
	return out, r.Count(), nil
}

type builtRulings struct {
	byOracle map[string][]models.Ruling
}

func (c *Cache) parseRulings(ctx context.Context, path string, report func(int)) (*builtRulings, int, error) {
	r, err := stream.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	out := &builtRulings{byOracle: make(map[string][]models.Ruling)}
	for {
		var ruling models.Ruling
		err := r.Next(&ruling)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, r.Count(), err
		}
		if ruling.OracleID != "" {
			out.byOracle[ruling.OracleID] = append(out.byOracle[ruling.OracleID], ruling)
		}

		if r.Count()%progressEvery == 0 {
			if report != nil {
				report(r.Count())
			}
			if err := ctx.Err(); err != nil {
				return nil, r.Count(), err
			}
		}
	}
	if report != nil {
		report(r.Count())
	}
	return out, r.Count(), nil
}

// markError records a failed attempt. Cancellation is not an error
// state: the previous row stays untouched.
func (c *Cache) markError(ctx context.Context, kind string, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if c.cfg.Meta == nil {
		return
	}
	if err := c.cfg.Meta.SetStatus(context.Background(), kind, models.SyncStatusError); err != nil {
		log.Printf("[cache] %s: record error status: %v", kind, err)
	}
}

func (c *Cache) putMeta(ctx context.Context, m *models.DatasetMeta) {
	if c.cfg.Meta == nil {
		return
	}
	if err := c.cfg.Meta.Put(ctx, m); err != nil {
		log.Printf("[cache] %s: save dataset meta: %v", m.Kind, err)
	}
}

func (c *Cache) progressFunc(kind, runID string, extra func(written, total int64)) func(written, total int64) {
	return func(written, total int64) {
		if c.cfg.Hub != nil {
			c.cfg.Hub.BroadcastJSON(events.NewProgressEvent(kind, runID, written, total))
		}
		if extra != nil {
			extra(written, total)
		}
	}
}

func nowPtr() *time.Time {
	now := time.Now().UTC()
	return &now
}
