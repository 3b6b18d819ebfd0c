package models

import "strings"

// FaceSeparator joins face names / type lines when a card has more than one face.
const FaceSeparator = " // "

// OracleTextSeparator joins per-face oracle texts on merged records.
const OracleTextSeparator = "\n\n//\n\n"

// ImageURIs holds the image sizes we keep from the provider payload.
type ImageURIs struct {
	Small  string `json:"small,omitempty"`
	Normal string `json:"normal,omitempty"`
	Large  string `json:"large,omitempty"`
}

func (iu ImageURIs) Empty() bool {
	return iu.Small == "" && iu.Normal == "" && iu.Large == ""
}

// CardFace is one face of a multi-face card (DFC, adventure, split...).
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line,omitempty"`
	OracleText string     `json:"oracle_text,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	Power      string     `json:"power,omitempty"`
	Toughness  string     `json:"toughness,omitempty"`
	Loyalty    string     `json:"loyalty,omitempty"`
	Defense    string     `json:"defense,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// RawCard is one printing exactly as it appears in the bulk file.
// Instances are ephemeral: they only live for the parse pass that
// produced them, and only derived Print/OracleCard values are retained.
type RawCard struct {
	ID              string            `json:"id"`
	OracleID        string            `json:"oracle_id"`
	Name            string            `json:"name"`
	Lang            string            `json:"lang"`
	Set             string            `json:"set"`
	SetName         string            `json:"set_name"`
	SetType         string            `json:"set_type"`
	CollectorNumber string            `json:"collector_number"`
	ReleasedAt      string            `json:"released_at"`
	Layout          string            `json:"layout"`
	Rarity          string            `json:"rarity"`
	Digital         bool              `json:"digital"`
	Games           []string          `json:"games"`
	ManaCost        string            `json:"mana_cost"`
	TypeLine        string            `json:"type_line"`
	OracleText      string            `json:"oracle_text"`
	CMC             float64           `json:"cmc"`
	Colors          []string          `json:"colors"`
	ColorIdentity   []string          `json:"color_identity"`
	Legalities      map[string]string `json:"legalities"`
	CardFaces       []CardFace        `json:"card_faces"`
	Power           string            `json:"power"`
	Toughness       string            `json:"toughness"`
	Loyalty         string            `json:"loyalty"`
	Defense         string            `json:"defense"`
	EDHRecRank      int               `json:"edhrec_rank"`
	ScryfallURI     string            `json:"scryfall_uri"`
	ImageURIs       *ImageURIs        `json:"image_uris"`
}

// FrontFaceName returns the first face name, or the full name for
// single-face cards.
func (c *RawCard) FrontFaceName() string {
	if len(c.CardFaces) > 0 && c.CardFaces[0].Name != "" {
		return c.CardFaces[0].Name
	}
	return c.Name
}

// BackFaceNames returns the names of every face after the first.
func (c *RawCard) BackFaceNames() []string {
	if len(c.CardFaces) <= 1 {
		return nil
	}
	var names []string
	for _, f := range c.CardFaces[1:] {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// Images resolves image URIs, falling back to the front face for cards
// where the provider only sets per-face images.
func (c *RawCard) Images() ImageURIs {
	if c.ImageURIs != nil && !c.ImageURIs.Empty() {
		return *c.ImageURIs
	}
	if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil {
		return *c.CardFaces[0].ImageURIs
	}
	return ImageURIs{}
}

// Print is the compact per-printing projection retained for exact lookups.
type Print struct {
	ID              string    `json:"id"`
	OracleID        string    `json:"oracle_id"`
	Name            string    `json:"name"`
	Lang            string    `json:"lang"`
	Set             string    `json:"set"`
	SetName         string    `json:"set_name"`
	SetType         string    `json:"set_type"`
	CollectorNumber string    `json:"collector_number"`
	ReleasedAt      string    `json:"released_at"`
	Layout          string    `json:"layout"`
	Rarity          string    `json:"rarity"`
	Digital         bool      `json:"digital"`
	FaceNames       []string  `json:"face_names,omitempty"`
	FaceTypeLines   []string  `json:"face_type_lines,omitempty"`
	TypeLine        string    `json:"type_line,omitempty"`
	ScryfallURI     string    `json:"scryfall_uri,omitempty"`
	ImageURIs       ImageURIs `json:"image_uris"`
}

// PrintFromRaw projects the retained printing detail out of a raw record.
func PrintFromRaw(c *RawCard) *Print {
	p := &Print{
		ID:              c.ID,
		OracleID:        c.OracleID,
		Name:            c.Name,
		Lang:            c.Lang,
		Set:             strings.ToLower(c.Set),
		SetName:         c.SetName,
		SetType:         c.SetType,
		CollectorNumber: c.CollectorNumber,
		ReleasedAt:      c.ReleasedAt,
		Layout:          c.Layout,
		Rarity:          c.Rarity,
		Digital:         c.Digital,
		TypeLine:        c.TypeLine,
		ScryfallURI:     c.ScryfallURI,
		ImageURIs:       c.Images(),
	}
	for _, f := range c.CardFaces {
		if f.Name != "" {
			p.FaceNames = append(p.FaceNames, f.Name)
		}
		if f.TypeLine != "" {
			p.FaceTypeLines = append(p.FaceTypeLines, f.TypeLine)
		}
	}
	return p
}

// DisplayName prefers face names and de-duplicates "X // X" cases.
func (p *Print) DisplayName() string {
	if len(p.FaceNames) == 0 {
		return p.Name
	}
	first := p.FaceNames[0]
	last := p.FaceNames[len(p.FaceNames)-1]
	if len(p.FaceNames) >= 2 && strings.EqualFold(first, last) {
		return first
	}
	return strings.Join(p.FaceNames, FaceSeparator)
}

// TypeLabel combines face type lines when present, falling back to the
// top-level type line.
func (p *Print) TypeLabel() string {
	if len(p.FaceTypeLines) == 0 {
		return strings.TrimSpace(p.TypeLine)
	}
	var labels []string
	seen := make(map[string]bool, len(p.FaceTypeLines))
	for _, tl := range p.FaceTypeLines {
		tl = strings.TrimSpace(tl)
		if tl == "" {
			continue
		}
		k := strings.ToLower(tl)
		if seen[k] {
			continue
		}
		seen[k] = true
		labels = append(labels, tl)
	}
	if len(labels) == 0 {
		return strings.TrimSpace(p.TypeLine)
	}
	return strings.Join(labels, FaceSeparator)
}

// OracleCard is the single representative chosen per oracle identity:
// a flattened, display-ready projection. Immutable after construction;
// owned by the index snapshot that created it.
type OracleCard struct {
	OracleID      string            `json:"oracle_id"`
	Name          string            `json:"name"`
	Lang          string            `json:"lang"`
	ManaCost      string            `json:"mana_cost,omitempty"`
	TypeLine      string            `json:"type_line,omitempty"`
	OracleText    string            `json:"oracle_text,omitempty"`
	CMC           float64           `json:"cmc"`
	Colors        []string          `json:"colors,omitempty"`
	ColorIdentity []string          `json:"color_identity,omitempty"`
	Legalities    map[string]string `json:"legalities,omitempty"`
	Layout        string            `json:"layout,omitempty"`
	CardFaces     []CardFace        `json:"card_faces,omitempty"`
	Power         string            `json:"power,omitempty"`
	Toughness     string            `json:"toughness,omitempty"`
	Loyalty       string            `json:"loyalty,omitempty"`
	Defense       string            `json:"defense,omitempty"`
	EDHRecRank    int               `json:"edhrec_rank,omitempty"`
	ScryfallURI   string            `json:"scryfall_uri,omitempty"`
	ImageURIs     ImageURIs         `json:"image_uris"`
}

// Ruling is one entry from the rulings bulk dataset.
type Ruling struct {
	OracleID    string `json:"oracle_id"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Comment     string `json:"comment"`
}
