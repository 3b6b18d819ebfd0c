package cardindex

import (
	"strings"

	"cardvault/pkg/models"
)

// SearchPrints scans the retained printings for names containing every
// query token, optionally restricted to one set. Results come back in
// the snapshot's build order, windowed by offset/limit; the second
// return value is the total match count before windowing.
func (s *Snapshot) SearchPrints(query, setCode string, limit, offset int) ([]*models.Print, int) {
	tokens := strings.Fields(searchText(query))
	sc := NormalizeSetCode(setCode)
	if len(tokens) == 0 && sc == "" {
		return nil, 0
	}
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	total := 0
	var out []*models.Print
	for _, p := range s.prints {
		if sc != "" && p.Set != sc {
			continue
		}
		if !matchesTokens(p, tokens) {
			continue
		}
		total++
		if total <= offset {
			continue
		}
		if len(out) < limit {
			out = append(out, p)
		}
	}
	return out, total
}

func matchesTokens(p *models.Print, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack := searchText(p.Name)
	if len(p.FaceNames) > 0 {
		haystack += " " + searchText(strings.Join(p.FaceNames, " "))
	}
	for _, tok := range tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}
