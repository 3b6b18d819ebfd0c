package cardindex

import (
	"strings"

	"cardvault/pkg/models"
)

// Resolve maps an imported row (set code, collector number, name) to an
// oracle id. The steps run strictly in order and the first hit wins:
//
//  1. exact (set, collector number)
//  2. loose collector-number variants within the set
//  3. both again under the canonical set-code alias
//  4. loose lookup per face half of a "Front // Back" name
//  5. globally unambiguous name
//
// A miss returns ("", false); the caller decides whether to surface
// candidates for a manual pick.
func (s *Snapshot) Resolve(setCode, collectorNumber, name string) (string, bool) {
	sc := strings.ToLower(strings.TrimSpace(setCode))
	cn := strings.TrimSpace(collectorNumber)

	if oid, ok := s.resolveInSet(sc, cn, name); ok {
		return oid, true
	}
	if alias := NormalizeSetCode(sc); alias != sc {
		if oid, ok := s.resolveInSet(alias, cn, name); ok {
			return oid, true
		}
	}
	if strings.Contains(name, "//") {
		for _, face := range strings.Split(name, "//") {
			face = strings.TrimSpace(face)
			if face == "" {
				continue
			}
			if p := s.LoosePrint(sc, cn, face); p != nil && p.OracleID != "" {
				return p.OracleID, true
			}
		}
	}
	if oid, ok := s.UniqueOracleByName(name); ok {
		return oid, true
	}
	return "", false
}

func (s *Snapshot) resolveInSet(setCode, collectorNumber, name string) (string, bool) {
	if p := s.ExactPrint(setCode, collectorNumber, name); p != nil && p.OracleID != "" {
		return p.OracleID, true
	}
	if p := s.LoosePrint(setCode, collectorNumber, name); p != nil && p.OracleID != "" {
		return p.OracleID, true
	}
	return "", false
}

// ResolvePrint runs the same chain but keeps the printing itself, for
// callers that need images or rarity rather than just the identity.
func (s *Snapshot) ResolvePrint(setCode, collectorNumber, name string) *models.Print {
	sc := strings.ToLower(strings.TrimSpace(setCode))
	cn := strings.TrimSpace(collectorNumber)

	if p := s.ExactPrint(sc, cn, name); p != nil {
		return p
	}
	if p := s.LoosePrint(sc, cn, name); p != nil {
		return p
	}
	if alias := NormalizeSetCode(sc); alias != sc {
		if p := s.ExactPrint(alias, cn, name); p != nil {
			return p
		}
		if p := s.LoosePrint(alias, cn, name); p != nil {
			return p
		}
	}
	if strings.Contains(name, "//") {
		for _, face := range strings.Split(name, "//") {
			face = strings.TrimSpace(face)
			if face == "" {
				continue
			}
			if p := s.LoosePrint(sc, cn, face); p != nil {
				return p
			}
		}
	}
	if oid, ok := s.UniqueOracleByName(name); ok {
		if prints := s.byOracle[oid]; len(prints) > 0 {
			return prints[0]
		}
	}
	return nil
}
