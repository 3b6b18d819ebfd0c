package stream

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault/pkg/models"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulk.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readAll(t *testing.T, path string) ([]models.RawCard, error) {
	t.Helper()
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var out []models.RawCard
	for {
		var c models.RawCard
		err := r.Next(&c)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}

func TestNextMatchesWholeDocumentParse(t *testing.T) {
	doc := `[
		{"id":"p1","oracle_id":"o1","name":"Forest","set":"thb","collector_number":"254","lang":"en"},
		{"id":"p2","oracle_id":"o1","name":"Forest","set":"thb","collector_number":"254","lang":"de"},
		{"id":"p3","oracle_id":"o2","name":"Island","set":"znr","collector_number":"381","lang":"en"}
	]`
	path := writeTemp(t, doc)

	streamed, err := readAll(t, path)
	require.NoError(t, err)

	var reference []models.RawCard
	require.NoError(t, json.Unmarshal([]byte(doc), &reference))

	require.Len(t, streamed, len(reference))
	for i := range reference {
		assert.Equal(t, reference[i].ID, streamed[i].ID)
		assert.Equal(t, reference[i].OracleID, streamed[i].OracleID)
	}
}

func TestNextEmptyArray(t *testing.T) {
	path := writeTemp(t, ` [ ] `)
	out, err := readAll(t, path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNextCountsElements(t *testing.T) {
	path := writeTemp(t, `[{"id":"a"},{"id":"b"}]`)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var c models.RawCard
	require.NoError(t, r.Next(&c))
	require.NoError(t, r.Next(&c))
	require.ErrorIs(t, r.Next(&c), io.EOF)
	assert.Equal(t, 2, r.Count())

	// once done, Next keeps returning io.EOF
	require.ErrorIs(t, r.Next(&c), io.EOF)
}

func TestNextMissingOpeningBracket(t *testing.T) {
	path := writeTemp(t, `{"id":"a"}`)
	_, err := readAll(t, path)
	assert.True(t, IsParseError(err), "expected ParseError, got %v", err)
}

func TestNextTruncatedValue(t *testing.T) {
	path := writeTemp(t, `[{"id":"a"},{"id":"b`)
	out, err := readAll(t, path)
	assert.True(t, IsParseError(err), "expected ParseError, got %v", err)
	assert.Len(t, out, 1)
}

func TestNextTrailingGarbage(t *testing.T) {
	path := writeTemp(t, `[{"id":"a"}] {"extra":true}`)
	_, err := readAll(t, path)
	assert.True(t, IsParseError(err), "expected ParseError, got %v", err)
}

func TestNextEmptyFile(t *testing.T) {
	path := writeTemp(t, ``)
	_, err := readAll(t, path)
	assert.True(t, IsParseError(err), "expected ParseError, got %v", err)
}
