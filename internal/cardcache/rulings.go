package cardcache

import (
	"sort"

	"cardvault/pkg/models"
)

// rulingsIndex is one immutable generation of the rulings dataset,
// keyed by oracle id.
type rulingsIndex struct {
	byOracle map[string][]models.Ruling
	entries  int
	epoch    int64
}

func newRulingsIndex(byOracle map[string][]models.Ruling, entries int, epoch int64) *rulingsIndex {
	for _, rs := range byOracle {
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].PublishedAt < rs[j].PublishedAt
		})
	}
	return &rulingsIndex{byOracle: byOracle, entries: entries, epoch: epoch}
}

// RulingsForOracle returns the rulings for one identity, oldest first.
// Nil before the rulings dataset has been loaded.
func (c *Cache) RulingsForOracle(oracleID string) []models.Ruling {
	r := c.rulings.Load()
	if r == nil {
		return nil
	}
	return r.byOracle[oracleID]
}

// RulingsReady reports whether the rulings dataset is queryable.
func (c *Cache) RulingsReady() bool { return c.rulings.Load() != nil }
