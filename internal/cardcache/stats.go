package cardcache

import (
	"os"
	"time"

	"cardvault/pkg/models"
)

// Stats reports on-disk and in-memory state for operator tooling.
func (c *Cache) Stats() models.CacheStats {
	stats := models.CacheStats{
		Prints:  c.datasetStats(KindDefaultCards),
		Rulings: c.datasetStats(KindRulings),
		Epoch:   c.Epoch(),
		Ready:   c.Ready(),
	}
	if s := c.snap.Load(); s != nil {
		stats.Prints.Records = s.PrintCount()
		stats.Prints.IndexSizes = s.IndexSizes()
		stats.UniqueSets = len(s.AllSetCodes())
		stats.UniqueOracles = s.OracleCount()
	}
	if r := c.rulings.Load(); r != nil {
		stats.Rulings.Records = r.entries
		stats.Rulings.IndexSizes = map[string]int{"by_oracle": len(r.byOracle)}
	}
	return stats
}

func (c *Cache) datasetStats(kind string) models.DatasetStats {
	path := c.DatasetPath(kind)
	ds := models.DatasetStats{File: path, Stale: c.Stale(kind)}
	fi, err := os.Stat(path)
	if err != nil {
		return ds
	}
	mod := fi.ModTime().UTC()
	ds.Exists = true
	ds.SizeBytes = fi.Size()
	ds.ModifiedAt = &mod
	ds.AgeSeconds = time.Since(fi.ModTime()).Seconds()
	return ds
}
