package cardindex

import (
	"sort"
	"strings"
	"time"

	"cardvault/pkg/models"
)

// Snapshot is one fully built, immutable generation of the card indexes.
// Readers hold it by pointer and never see a partially built state; a
// rebuild produces a fresh Snapshot and swaps the pointer.
type Snapshot struct {
	epoch   int64
	builtAt time.Time

	prints  []*models.Print
	oracles map[string]*models.OracleCard

	exact    map[string][]*models.Print
	bySetNum map[setNumKey][]*models.Print
	byOracle map[string][]*models.Print
	byName   map[string][]*models.Print
	byFront  map[string][]*models.Print
	byBack   map[string][]*models.Print

	uniqueName map[string]string
	faceName   map[string]string

	setNames    map[string]string
	setReleases map[string]string
}

// Epoch returns the generation number stamped at publication.
func (s *Snapshot) Epoch() int64 { return s.epoch }

// BuiltAt returns when this generation finished building.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// PrintCount returns the number of retained printings.
func (s *Snapshot) PrintCount() int { return len(s.prints) }

// OracleCount returns the number of distinct oracle identities.
func (s *Snapshot) OracleCount() int { return len(s.oracles) }

// IndexSizes reports per-index entry counts for the stats endpoint.
func (s *Snapshot) IndexSizes() map[string]int {
	return map[string]int{
		"exact":       len(s.exact),
		"by_set_num":  len(s.bySetNum),
		"by_oracle":   len(s.byOracle),
		"by_name":     len(s.byName),
		"by_front":    len(s.byFront),
		"by_back":     len(s.byBack),
		"unique_name": len(s.uniqueName),
		"face_name":   len(s.faceName),
		"sets":        len(s.setNames),
	}
}

// Oracle returns the representative record for an oracle id, or nil.
func (s *Snapshot) Oracle(oracleID string) *models.OracleCard {
	return s.oracles[oracleID]
}

// Oracles exposes the representative map. Callers must not mutate it.
func (s *Snapshot) Oracles() map[string]*models.OracleCard { return s.oracles }

// PrintsForOracle returns every printing of an oracle identity, ordered
// by set code then collector number.
func (s *Snapshot) PrintsForOracle(oracleID string) []*models.Print {
	return s.byOracle[oracleID]
}

// ExactPrint looks up printings under the exact (set, collector number)
// key. When several languages share the slot, nameHint disambiguates;
// without a usable hint the preferred-language printing wins.
func (s *Snapshot) ExactPrint(setCode, collectorNumber, nameHint string) *models.Print {
	sc := strings.ToLower(strings.TrimSpace(setCode))
	cn := strings.ToLower(strings.TrimSpace(collectorNumber))
	if sc == "" || cn == "" {
		return nil
	}
	return pickByHint(s.exact[sc+"::"+cn], nameHint)
}

// LoosePrint retries the exact lookup with collector-number variants
// (leading zeros, letter suffixes) and finally the numeric slot shared
// by suffixed printings.
func (s *Snapshot) LoosePrint(setCode, collectorNumber, nameHint string) *models.Print {
	sc := strings.ToLower(strings.TrimSpace(setCode))
	if sc == "" {
		return nil
	}
	var cands []*models.Print
	for _, v := range cnVariants(collectorNumber) {
		cands = append(cands, s.exact[sc+"::"+v]...)
	}
	if len(cands) == 0 {
		if n, ok := cnNum(collectorNumber); ok {
			cands = s.bySetNum[setNumKey{set: sc, num: n}]
		}
	}
	return pickByHint(cands, nameHint)
}

// UniqueOracleByName resolves a name to an oracle id when the name is
// globally unambiguous, consulting full names first and single faces of
// multi-face cards second.
func (s *Snapshot) UniqueOracleByName(name string) (string, bool) {
	nk := nameKey(name)
	if nk == "" {
		return "", false
	}
	if oid, ok := s.uniqueName[nk]; ok {
		return oid, true
	}
	if oid, ok := s.faceName[nk]; ok {
		return oid, true
	}
	return "", false
}

// CandidatesBySetAndName returns every printing in a set whose name
// matches, for callers that want to offer a manual pick.
func (s *Snapshot) CandidatesBySetAndName(setCode, name string) []*models.Print {
	sc := NormalizeSetCode(setCode)
	nk := nameKey(name)
	if sc == "" || nk == "" {
		return nil
	}
	var out []*models.Print
	for _, p := range s.printsNamed(nk) {
		if p.Set == sc {
			out = append(out, p)
		}
	}
	return out
}

// PrintsByName returns every printing matching a folded name, any set.
// Full names match first; failing that, front then back face names.
func (s *Snapshot) PrintsByName(name string) []*models.Print {
	return s.printsNamed(nameKey(name))
}

func (s *Snapshot) printsNamed(nk string) []*models.Print {
	if nk == "" {
		return nil
	}
	if prints := s.byName[nk]; len(prints) > 0 {
		return prints
	}
	if prints := s.byFront[nk]; len(prints) > 0 {
		return prints
	}
	return s.byBack[nk]
}

// AllSetCodes returns the known set codes in sorted order.
func (s *Snapshot) AllSetCodes() []string {
	codes := make([]string, 0, len(s.setNames))
	for code := range s.setNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SetNameForCode returns the display name recorded for a set code.
func (s *Snapshot) SetNameForCode(code string) (string, bool) {
	name, ok := s.setNames[NormalizeSetCode(code)]
	return name, ok
}

// SetReleaseForCode returns the earliest release date seen for a set code.
func (s *Snapshot) SetReleaseForCode(code string) (string, bool) {
	date, ok := s.setReleases[NormalizeSetCode(code)]
	return date, ok
}

// pickByHint selects one printing from candidates that share a lookup
// slot. A name hint matches the full name first, then the front face;
// failing both, the first (preferred-language) candidate wins.
func pickByHint(cands []*models.Print, nameHint string) *models.Print {
	if len(cands) == 0 {
		return nil
	}
	if len(cands) == 1 || strings.TrimSpace(nameHint) == "" {
		return cands[0]
	}
	nk := nameKey(nameHint)
	for _, p := range cands {
		if nameKey(p.Name) == nk {
			return p
		}
	}
	front := nameHint
	if i := strings.Index(nameHint, "//"); i >= 0 {
		front = nameHint[:i]
	}
	fk := nameKey(front)
	for _, p := range cands {
		if len(p.FaceNames) > 0 && nameKey(p.FaceNames[0]) == fk {
			return p
		}
		if nameKey(p.Name) == fk {
			return p
		}
	}
	return cands[0]
}
