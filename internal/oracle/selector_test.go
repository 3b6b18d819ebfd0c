package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault/pkg/models"
)

func paperCard(id, oid, name, lang string) *models.RawCard {
	return &models.RawCard{
		ID:       id,
		OracleID: oid,
		Name:     name,
		Lang:     lang,
		Set:      "thb",
		SetType:  "expansion",
		Games:    []string{"paper"},
	}
}

func TestScoreWeights(t *testing.T) {
	s := NewSelector(DefaultSelectorConfig())

	tests := []struct {
		name string
		card *models.RawCard
		want int
	}{
		{"english paper expansion", paperCard("p1", "o1", "Forest", "en"), 7},
		{"german paper expansion", paperCard("p2", "o1", "Forest", "de"), 4},
		{"english digital only", &models.RawCard{ID: "p3", OracleID: "o1", Name: "Forest", Lang: "en", SetType: "expansion", Digital: true, Games: []string{"mtgo"}}, 5},
		{"token set type", &models.RawCard{ID: "p4", OracleID: "o1", Name: "Forest", Lang: "en", SetType: "token", Games: []string{"paper"}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.card))
		})
	}
}

func TestOfferPrefersHigherScore(t *testing.T) {
	s := NewSelector(DefaultSelectorConfig())
	s.Offer(paperCard("p-de", "o1", "Forest", "de"))
	s.Offer(paperCard("p-en", "o1", "Forest", "en"))

	oracles := s.Oracles()
	require.Len(t, oracles, 1)
	assert.Equal(t, "en", oracles["o1"].Lang)
}

func TestOfferTieKeepsFirstSeen(t *testing.T) {
	s := NewSelector(DefaultSelectorConfig())
	first := paperCard("p-first", "o1", "Forest", "en")
	first.ScryfallURI = "https://cards.example/p-first"
	second := paperCard("p-second", "o1", "Forest", "en")
	second.ScryfallURI = "https://cards.example/p-second"

	s.Offer(first)
	s.Offer(second)

	oracles := s.Oracles()
	require.Len(t, oracles, 1)
	// equal scores: the held candidate is not replaced
	assert.Equal(t, "https://cards.example/p-first", oracles["o1"].ScryfallURI)
}

func TestOfferSkipsRecordsWithoutIdentity(t *testing.T) {
	s := NewSelector(DefaultSelectorConfig())
	s.Offer(&models.RawCard{ID: "p1", Name: "Some Token"})
	s.Offer(&models.RawCard{ID: "p2", OracleID: "o9"})

	assert.Empty(t, s.Oracles())
	assert.Equal(t, 2, s.Seen())
}

func TestSelectionIsDeterministic(t *testing.T) {
	input := []*models.RawCard{
		paperCard("p1", "o1", "Forest", "de"),
		paperCard("p2", "o1", "Forest", "en"),
		paperCard("p3", "o2", "Island", "en"),
		{ID: "p4", OracleID: "o2", Name: "Island", Lang: "en", SetType: "memorabilia", Games: []string{"paper"}},
	}

	run := func() map[string]*models.OracleCard {
		s := NewSelector(DefaultSelectorConfig())
		for _, c := range input {
			s.Offer(c)
		}
		return s.Oracles()
	}

	assert.Equal(t, run(), run())
}

func TestFaceFieldsMergedInFaceOrder(t *testing.T) {
	card := &models.RawCard{
		ID:       "p1",
		OracleID: "o1",
		Name:     "Fire // Ice",
		Lang:     "en",
		SetType:  "expansion",
		CardFaces: []models.CardFace{
			{Name: "Fire", ManaCost: "{1}{R}", TypeLine: "Instant", OracleText: "Deal 2 damage."},
			{Name: "Ice", ManaCost: "{1}{U}", TypeLine: "Instant", OracleText: "Tap target permanent."},
		},
	}

	s := NewSelector(DefaultSelectorConfig())
	s.Offer(card)
	rec := s.Oracles()["o1"]
	require.NotNil(t, rec)

	assert.Equal(t, "Instant // Instant", rec.TypeLine)
	assert.Equal(t, "{1}{R} // {1}{U}", rec.ManaCost)
	assert.Equal(t, "Deal 2 damage.\n\n//\n\nTap target permanent.", rec.OracleText)
	require.Len(t, rec.CardFaces, 2)
	assert.Nil(t, rec.CardFaces[0].ImageURIs)
}

func TestTopLevelFieldsNotOverridden(t *testing.T) {
	card := &models.RawCard{
		ID:       "p1",
		OracleID: "o1",
		Name:     "Delver of Secrets // Insectile Aberration",
		Lang:     "en",
		SetType:  "expansion",
		TypeLine: "Creature — Human Wizard // Creature — Human Insect",
		CardFaces: []models.CardFace{
			{Name: "Delver of Secrets", TypeLine: "Creature — Human Wizard"},
			{Name: "Insectile Aberration", TypeLine: "Creature — Human Insect"},
		},
	}

	s := NewSelector(DefaultSelectorConfig())
	s.Offer(card)
	rec := s.Oracles()["o1"]
	require.NotNil(t, rec)
	assert.Equal(t, "Creature — Human Wizard // Creature — Human Insect", rec.TypeLine)
}
