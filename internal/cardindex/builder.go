package cardindex

import (
	"sort"
	"strings"
	"time"

	"cardvault/pkg/models"
)

// Builder accumulates printings during a parse pass and assembles an
// immutable Snapshot at the end. It is not safe for concurrent use; one
// rebuild owns one Builder.
type Builder struct {
	preferredLang string
	prints        []*models.Print
	oracles       map[string]*models.OracleCard
}

func NewBuilder(preferredLang string) *Builder {
	if preferredLang == "" {
		preferredLang = "en"
	}
	return &Builder{
		preferredLang: preferredLang,
		oracles:       make(map[string]*models.OracleCard),
	}
}

// AddPrint projects and retains one raw printing. Records without a set
// code and collector number cannot be addressed and are dropped.
func (b *Builder) AddPrint(c *models.RawCard) {
	if c.Set == "" || c.CollectorNumber == "" {
		return
	}
	b.prints = append(b.prints, models.PrintFromRaw(c))
}

// SetOracles installs the chosen representative per oracle identity.
func (b *Builder) SetOracles(oracles map[string]*models.OracleCard) {
	if oracles == nil {
		oracles = make(map[string]*models.OracleCard)
	}
	b.oracles = oracles
}

// Build assembles every index and stamps the snapshot with epoch.
func (b *Builder) Build(epoch int64) *Snapshot {
	s := &Snapshot{
		epoch:       epoch,
		builtAt:     time.Now().UTC(),
		prints:      b.prints,
		oracles:     b.oracles,
		exact:       make(map[string][]*models.Print),
		bySetNum:    make(map[setNumKey][]*models.Print),
		byOracle:    make(map[string][]*models.Print),
		byName:      make(map[string][]*models.Print),
		byFront:     make(map[string][]*models.Print),
		byBack:      make(map[string][]*models.Print),
		uniqueName:  make(map[string]string),
		faceName:    make(map[string]string),
		setNames:    make(map[string]string),
		setReleases: make(map[string]string),
	}

	for _, p := range b.prints {
		cn := strings.ToLower(strings.TrimSpace(p.CollectorNumber))
		s.exact[p.Set+"::"+cn] = append(s.exact[p.Set+"::"+cn], p)
		if n, ok := cnNum(p.CollectorNumber); ok {
			k := setNumKey{set: p.Set, num: n}
			s.bySetNum[k] = append(s.bySetNum[k], p)
		}
		if p.OracleID != "" {
			s.byOracle[p.OracleID] = append(s.byOracle[p.OracleID], p)
		}
		if nk := nameKey(p.Name); nk != "" {
			s.byName[nk] = append(s.byName[nk], p)
		}
		for i, face := range p.FaceNames {
			fk := nameKey(face)
			if fk == "" {
				continue
			}
			if i == 0 {
				s.byFront[fk] = append(s.byFront[fk], p)
			} else {
				s.byBack[fk] = append(s.byBack[fk], p)
			}
		}

		if p.SetName != "" {
			if _, ok := s.setNames[p.Set]; !ok {
				s.setNames[p.Set] = p.SetName
			}
		}
		if p.ReleasedAt != "" {
			if have, ok := s.setReleases[p.Set]; !ok || p.ReleasedAt < have {
				s.setReleases[p.Set] = p.ReleasedAt
			}
		}
	}

	for _, cands := range s.exact {
		b.sortSlot(cands)
	}
	for _, cands := range s.bySetNum {
		b.sortSlot(cands)
	}
	for _, prints := range s.byOracle {
		sortPrints(prints)
	}
	for _, prints := range s.byName {
		sortPrints(prints)
	}
	for _, prints := range s.byFront {
		sortPrints(prints)
	}
	for _, prints := range s.byBack {
		sortPrints(prints)
	}

	b.buildNameIndexes(s)
	return s
}

// sortSlot orders candidates sharing a lookup slot so that index zero is
// the hint-free answer: preferred language first, then language and id
// for a stable tiebreak.
func (b *Builder) sortSlot(cands []*models.Print) {
	sort.SliceStable(cands, func(i, j int) bool {
		pi, pj := cands[i], cands[j]
		if (pi.Lang == b.preferredLang) != (pj.Lang == b.preferredLang) {
			return pi.Lang == b.preferredLang
		}
		if pi.Lang != pj.Lang {
			return pi.Lang < pj.Lang
		}
		return pi.ID < pj.ID
	})
}

func sortPrints(prints []*models.Print) {
	sort.SliceStable(prints, func(i, j int) bool {
		pi, pj := prints[i], prints[j]
		if pi.Set != pj.Set {
			return pi.Set < pj.Set
		}
		ni, iok := cnNum(pi.CollectorNumber)
		nj, jok := cnNum(pj.CollectorNumber)
		if iok && jok && ni != nj {
			return ni < nj
		}
		return pi.CollectorNumber < pj.CollectorNumber
	})
}

// buildNameIndexes derives the unambiguous-name maps from the oracle
// representatives. A full name resolves when exactly one identity bears
// it; a face name resolves when, counting both face uses and full-name
// uses, exactly one identity claims it.
func (b *Builder) buildNameIndexes(s *Snapshot) {
	fullOwners := make(map[string]map[string]struct{})
	faceOwners := make(map[string]map[string]struct{})
	claim := func(m map[string]map[string]struct{}, key, oid string) {
		if key == "" {
			return
		}
		set, ok := m[key]
		if !ok {
			set = make(map[string]struct{})
			m[key] = set
		}
		set[oid] = struct{}{}
	}

	for oid, oc := range s.oracles {
		claim(fullOwners, nameKey(oc.Name), oid)
		if strings.Contains(oc.Name, models.FaceSeparator) {
			for _, face := range strings.Split(oc.Name, models.FaceSeparator) {
				claim(faceOwners, nameKey(face), oid)
			}
		}
	}

	for key, owners := range fullOwners {
		if len(owners) == 1 {
			for oid := range owners {
				s.uniqueName[key] = oid
			}
		}
	}
	for key, owners := range faceOwners {
		combined := make(map[string]struct{}, len(owners))
		for oid := range owners {
			combined[oid] = struct{}{}
		}
		for oid := range fullOwners[key] {
			combined[oid] = struct{}{}
		}
		if len(combined) == 1 {
			for oid := range combined {
				s.faceName[key] = oid
			}
		}
	}
}
