// Package search ranks snapshots against a free-text query.
//
// Ranking is hybrid: a keyword score over the snapshot message, author and
// Live Set summary, blended with the cosine similarity of text embeddings
// when an embedder is configured and the snapshot has been indexed.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/livesnap/internal/embeddings"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pterm/pterm"
)

// Embedder turns text into an embedding vector. The Ollama client
// satisfies it.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Weights blend the keyword and semantic scores
type Weights struct {
	Keyword  float64
	Semantic float64
}

// DefaultWeights favours semantic similarity
var DefaultWeights = Weights{Keyword: 0.3, Semantic: 0.7}

// Document is a snapshot together with the Live Set summary at that version
type Document struct {
	Snapshot models.Snapshot
	Summary  string
}

// Text returns the text that is scored and embedded for d
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Snapshot.Message)
	if d.Snapshot.AuthorName != "" {
		b.WriteString("\nAuthor: ")
		b.WriteString(d.Snapshot.AuthorName)
	}
	if d.Summary != "" {
		b.WriteString("\n")
		b.WriteString(d.Summary)
	}
	return b.String()
}

// Result is one ranked document
type Result struct {
	Document      `json:"-"`
	Hash          string  `json:"hash"`
	Message       string  `json:"message"`
	Score         float64 `json:"score"`
	KeywordScore  int     `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score,omitempty"`
	UsedSemantic  bool    `json:"used_semantic"`
}

// Searcher ranks documents. A nil embedder or store means keyword only.
type Searcher struct {
	embedder Embedder
	store    *embeddings.Store
	weights  Weights
	logger   *pterm.Logger
}

// New creates a searcher
func New(embedder Embedder, store *embeddings.Store, weights Weights, logger *pterm.Logger) *Searcher {
	if logger == nil {
		logger = logging.Nop()
	}
	if weights.Keyword == 0 && weights.Semantic == 0 {
		weights = DefaultWeights
	}
	return &Searcher{embedder: embedder, store: store, weights: weights, logger: logger}
}

// Semantic reports whether the searcher can use embeddings at all
func (s *Searcher) Semantic() bool {
	return s.embedder != nil && s.store != nil
}

// Index embeds doc unless the store already holds an embedding for the same
// text. It reports whether a new embedding was written.
func (s *Searcher) Index(ctx context.Context, doc Document) (bool, error) {
	if !s.Semantic() {
		return false, nil
	}
	text := doc.Text()
	if s.store.Fresh(doc.Snapshot.Hash, text) {
		return false, nil
	}

	vec, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return false, fmt.Errorf("failed to embed version %s: %w", doc.Snapshot.ShortHash, err)
	}
	if err := s.store.Put(doc.Snapshot.Hash, text, vec); err != nil {
		return false, err
	}
	s.logger.Debug("version indexed", s.logger.Args("version", doc.Snapshot.ShortHash, "dimensions", len(vec)))
	return true, nil
}

// Search ranks docs against query, best first. Documents without any
// relevance are dropped. The second return value reports whether semantic
// scoring was used.
func (s *Searcher) Search(ctx context.Context, query string, docs []Document) ([]Result, bool) {
	queryWords := strings.Fields(strings.ToLower(query))

	var queryVec []float64
	if s.Semantic() {
		vec, err := s.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			s.logger.Warn("semantic search unavailable, using keywords only", s.logger.Args("error", err.Error()))
		} else {
			queryVec = vec
		}
	}
	semantic := queryVec != nil

	var results []Result
	for _, doc := range docs {
		r := Result{
			Document:     doc,
			Hash:         doc.Snapshot.Hash,
			Message:      doc.Snapshot.Message,
			KeywordScore: KeywordScore(queryWords, doc),
		}

		similarity := 0.0
		if semantic {
			if vec, err := s.store.Get(doc.Snapshot.Hash); err == nil {
				if sim, err := embeddings.CosineSimilarity(queryVec, vec); err == nil {
					similarity = sim
					// map [-1, 1] onto [0, 100] to match the keyword scale
					r.SemanticScore = (sim + 1) * 50
					r.UsedSemantic = true
				}
			}
		}

		if r.UsedSemantic {
			normalizedKeyword := float64(r.KeywordScore) / 2.0
			if normalizedKeyword > 100 {
				normalizedKeyword = 100
			}
			r.Score = s.weights.Keyword*normalizedKeyword + s.weights.Semantic*r.SemanticScore
		} else {
			r.Score = float64(r.KeywordScore)
		}

		if r.KeywordScore > 0 || similarity > 0 {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Snapshot.Date.After(results[j].Snapshot.Date)
	})
	return results, semantic
}

// KeywordScore scores doc by occurrences of each query word, with bonuses
// for hits in the message subject and the author name.
func KeywordScore(queryWords []string, doc Document) int {
	score := 0
	text := strings.ToLower(doc.Text())
	subject := strings.ToLower(doc.Snapshot.Subject())
	author := strings.ToLower(doc.Snapshot.AuthorName)

	for _, word := range queryWords {
		word = strings.ToLower(word)
		score += strings.Count(text, word) * 10

		if strings.Contains(subject, word) {
			score += 50
		}
		if author != "" && strings.Contains(author, word) {
			score += 30
		}
	}
	return score
}
