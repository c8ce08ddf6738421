package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pders01/livesnap/internal/embeddings"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps texts onto fixed axes by keyword
type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	text = strings.ToLower(text)
	vec := []float64{0.01, 0.01, 0.01}
	if strings.Contains(text, "drum") || strings.Contains(text, "beat") {
		vec[0] = 1
	}
	if strings.Contains(text, "vocal") || strings.Contains(text, "singing") {
		vec[1] = 1
	}
	if strings.Contains(text, "mix") {
		vec[2] = 1
	}
	return vec, nil
}

func docs() []search.Document {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	mk := func(hash, msg string, day int, summary string) search.Document {
		return search.Document{
			Snapshot: models.Snapshot{
				Hash:       hash,
				ShortHash:  models.ShortID(hash),
				AuthorName: "Ada",
				Date:       base.AddDate(0, 0, day),
				Message:    msg,
			},
			Summary: summary,
		}
	}
	return []search.Document{
		mk("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "New drum pattern", 0, "Tempo: 124 BPM"),
		mk("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "Vocal takes", 1, "Tracks (2): Vocals, Bass"),
		mk("cccccccccccccccccccccccccccccccccccccccc", "Rough mix", 2, "Plugins (1): Serum (VST3, Xfer Records)"),
	}
}

func TestKeywordScore(t *testing.T) {
	d := docs()

	assert.Zero(t, search.KeywordScore([]string{"guitar"}, d[0]))
	assert.Equal(t, 60, search.KeywordScore([]string{"drum"}, d[0]), "one occurrence plus subject bonus")
	assert.Greater(t, search.KeywordScore([]string{"serum"}, d[2]), 0, "summary text is searchable")
	assert.Equal(t, 10+30, search.KeywordScore([]string{"ada"}, d[1]), "author hit")
}

func TestSearchKeywordOnly(t *testing.T) {
	s := search.New(nil, nil, search.Weights{}, logging.Nop())
	assert.False(t, s.Semantic())

	results, semantic := s.Search(context.Background(), "vocal", docs())
	assert.False(t, semantic)
	require.Len(t, results, 1)
	assert.Equal(t, "Vocal takes", results[0].Message)
	assert.False(t, results[0].UsedSemantic)

	results, _ = s.Search(context.Background(), "nothing-matches-this", docs())
	assert.Empty(t, results)
}

func TestSearchTiesBreakNewestFirst(t *testing.T) {
	s := search.New(nil, nil, search.Weights{}, logging.Nop())

	results, _ := s.Search(context.Background(), "ada", docs())
	require.Len(t, results, 3)
	assert.Equal(t, "Rough mix", results[0].Message)
	assert.Equal(t, "New drum pattern", results[2].Message)
}

func TestSearchHybrid(t *testing.T) {
	store, err := embeddings.OpenStore(t.TempDir())
	require.NoError(t, err)
	emb := &fakeEmbedder{}
	s := search.New(emb, store, search.DefaultWeights, logging.Nop())
	ctx := context.Background()

	for _, d := range docs() {
		indexed, err := s.Index(ctx, d)
		require.NoError(t, err)
		assert.True(t, indexed)
	}
	assert.Equal(t, 3, store.Len())

	indexed, err := s.Index(ctx, docs()[0])
	require.NoError(t, err)
	assert.False(t, indexed, "unchanged text is not re-embedded")
	assert.Equal(t, 3, emb.calls)

	results, semantic := s.Search(ctx, "beat", docs())
	assert.True(t, semantic)
	require.NotEmpty(t, results)
	assert.Equal(t, "New drum pattern", results[0].Message, "semantic match without a keyword hit")
	assert.True(t, results[0].UsedSemantic)
	assert.Zero(t, results[0].KeywordScore)
}

func TestSearchFallsBackWhenEmbedderFails(t *testing.T) {
	store, err := embeddings.OpenStore(t.TempDir())
	require.NoError(t, err)
	s := search.New(&fakeEmbedder{err: errors.New("connection refused")}, store, search.DefaultWeights, logging.Nop())

	results, semantic := s.Search(context.Background(), "mix", docs())
	assert.False(t, semantic)
	require.Len(t, results, 1)
	assert.Equal(t, "Rough mix", results[0].Message)

	_, err = s.Index(context.Background(), docs()[0])
	assert.Error(t, err)
}

func TestDocumentText(t *testing.T) {
	d := docs()[2]
	text := d.Text()
	assert.True(t, strings.HasPrefix(text, "Rough mix\nAuthor: Ada\n"))
	assert.Contains(t, text, "Serum")
}
