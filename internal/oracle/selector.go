// Package oracle reduces the stream of raw printings to one representative
// record per oracle identity.
package oracle

import (
	"strings"

	"cardvault/pkg/models"
)

// SelectorConfig carries the scoring policy. The weights and the excluded
// set-type list are tuning inputs, not mechanism: retuning them must not
// require touching the selection logic.
type SelectorConfig struct {
	PreferredLang    string
	LangBonus        int
	RealSetBonus     int
	PaperBonus       int
	NonDigitalBonus  int
	ExcludedSetTypes []string
}

// DefaultSelectorConfig returns the production scoring policy.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		PreferredLang:    "en",
		LangBonus:        3,
		RealSetBonus:     2,
		PaperBonus:       1,
		NonDigitalBonus:  1,
		ExcludedSetTypes: []string{"token", "memorabilia", "art_series"},
	}
}

// Selector is a streaming fold keyed by oracle id: it holds one candidate
// per distinct identity seen so far, never the whole input set. A higher
// score replaces the held candidate; ties keep the first-seen record, so
// selection is deterministic for a fixed input order.
type Selector struct {
	cfg      SelectorConfig
	excluded map[string]bool
	best     map[string]*candidate
	seen     int
}

type candidate struct {
	score int
	card  *models.OracleCard
}

func NewSelector(cfg SelectorConfig) *Selector {
	excluded := make(map[string]bool, len(cfg.ExcludedSetTypes))
	for _, st := range cfg.ExcludedSetTypes {
		excluded[st] = true
	}
	return &Selector{
		cfg:      cfg,
		excluded: excluded,
		best:     make(map[string]*candidate),
	}
}

// Score rates one printing as a representative candidate.
func (s *Selector) Score(c *models.RawCard) int {
	score := 0
	if c.Lang == s.cfg.PreferredLang {
		score += s.cfg.LangBonus
	}
	if !s.excluded[c.SetType] {
		score += s.cfg.RealSetBonus
	}
	for _, g := range c.Games {
		if g == "paper" {
			score += s.cfg.PaperBonus
			break
		}
	}
	if !c.Digital {
		score += s.cfg.NonDigitalBonus
	}
	return score
}

// Offer feeds one raw printing into the fold. Records without an oracle id
// or name (provider-side tokens and stubs) are skipped.
func (s *Selector) Offer(c *models.RawCard) {
	s.seen++
	if c.OracleID == "" || c.Name == "" {
		return
	}
	score := s.Score(c)
	held := s.best[c.OracleID]
	if held != nil && score <= held.score {
		return
	}
	s.best[c.OracleID] = &candidate{score: score, card: buildOracleCard(c)}
}

// Seen returns the number of raw records offered, including skipped ones.
func (s *Selector) Seen() int { return s.seen }

// Oracles returns the chosen representative per oracle id.
func (s *Selector) Oracles() map[string]*models.OracleCard {
	out := make(map[string]*models.OracleCard, len(s.best))
	for oid, c := range s.best {
		out[oid] = c.card
	}
	return out
}

// buildOracleCard flattens one printing into the display-ready projection.
// Empty top-level fields on multi-face cards are derived by joining the
// per-face fields in face order.
func buildOracleCard(c *models.RawCard) *models.OracleCard {
	typeLine := c.TypeLine
	if typeLine == "" {
		typeLine = joinFaces(c.CardFaces, models.FaceSeparator, func(f models.CardFace) string { return f.TypeLine })
	}
	oracleText := c.OracleText
	if oracleText == "" {
		oracleText = joinFaces(c.CardFaces, models.OracleTextSeparator, func(f models.CardFace) string { return f.OracleText })
	}
	manaCost := c.ManaCost
	if manaCost == "" {
		manaCost = joinFaces(c.CardFaces, models.FaceSeparator, func(f models.CardFace) string { return f.ManaCost })
	}

	return &models.OracleCard{
		OracleID:      c.OracleID,
		Name:          c.Name,
		Lang:          c.Lang,
		ManaCost:      manaCost,
		TypeLine:      typeLine,
		OracleText:    oracleText,
		CMC:           c.CMC,
		Colors:        c.Colors,
		ColorIdentity: c.ColorIdentity,
		Legalities:    c.Legalities,
		Layout:        c.Layout,
		CardFaces:     compactFaces(c.CardFaces),
		Power:         c.Power,
		Toughness:     c.Toughness,
		Loyalty:       c.Loyalty,
		Defense:       c.Defense,
		EDHRecRank:    c.EDHRecRank,
		ScryfallURI:   c.ScryfallURI,
		ImageURIs:     c.Images(),
	}
}

func joinFaces(faces []models.CardFace, sep string, pick func(models.CardFace) string) string {
	var parts []string
	for _, f := range faces {
		if v := pick(f); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// compactFaces strips per-face image URIs; face text is all the index needs.
func compactFaces(faces []models.CardFace) []models.CardFace {
	if len(faces) == 0 {
		return nil
	}
	out := make([]models.CardFace, 0, len(faces))
	for _, f := range faces {
		f.ImageURIs = nil
		out = append(out, f)
	}
	return out
}
