package cmd

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/pders01/livesnap/internal/als"
	"github.com/pders01/livesnap/internal/config"
	"github.com/pders01/livesnap/internal/embeddings"
	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/ollama"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pders01/livesnap/internal/search"
)

// embeddingsDir is where the search index lives inside the state dir
const embeddingsDir = "embeddings"

// setAt parses the Live Set stored in commit. When the commit holds several
// sets the one currently edited in the working tree wins.
func (s *services) setAt(ctx context.Context, h project.Handle, commit string) (*als.Set, string, error) {
	repo := s.repo(h)
	names, err := repo.ListFiles(ctx, commit)
	if err != nil {
		return nil, "", err
	}

	preferred, _ := project.Primary(h.Path(), config.GetMarkerExt())
	name, ok := project.PickMarker(names, config.GetMarkerExt(), preferred)
	if !ok {
		return nil, "", lserr.Wrapf(lserr.ErrNoMarker, "version %s holds no Live Set", models.ShortID(commit))
	}

	data, err := repo.Show(ctx, commit, name)
	if err != nil {
		return nil, "", err
	}
	set, err := als.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, "", lserr.Wrapf(err, "%s at version %s", name, models.ShortID(commit))
	}
	return set, name, nil
}

// workingSet parses a Live Set from the working tree. An empty name selects
// the most recently modified one.
func workingSet(h project.Handle, name string) (*als.Set, string, error) {
	if name == "" {
		var err error
		if name, err = project.Primary(h.Path(), config.GetMarkerExt()); err != nil {
			return nil, "", err
		}
	}
	set, err := als.Open(filepath.Join(h.Path(), name))
	if err != nil {
		return nil, "", err
	}
	return set, name, nil
}

// document pairs a snapshot with its Live Set summary. A version without a
// readable set is still searchable by message.
func (s *services) document(ctx context.Context, h project.Handle, snap models.Snapshot) search.Document {
	doc := search.Document{Snapshot: snap}
	set, _, err := s.setAt(ctx, h, snap.Hash)
	if err != nil {
		s.logger.Debug("no Live Set summary", s.logger.Args("version", snap.ShortHash, "error", err.Error()))
		return doc
	}
	doc.Summary = set.Summary()
	return doc
}

// searcher builds a hybrid searcher when Ollama is reachable and falls back
// to keyword scoring otherwise.
func (s *services) searcher(ctx context.Context, h project.Handle) *search.Searcher {
	weights := search.Weights{
		Keyword:  config.GetKeywordWeight(),
		Semantic: config.GetSemanticWeight(),
	}
	if !config.GetSearchEnabled() {
		return search.New(nil, nil, weights, s.logger)
	}

	url := config.GetOllamaURL()
	if !ollama.IsAvailable(ctx, url) {
		s.logger.Debug("ollama not reachable, using keyword search", s.logger.Args("url", url))
		return search.New(nil, nil, weights, s.logger)
	}

	client, err := ollama.NewClient(url, config.GetEmbeddingModel())
	if err != nil {
		s.logger.Warn("invalid ollama settings", s.logger.Args("error", err.Error()))
		return search.New(nil, nil, weights, s.logger)
	}
	if err := client.CheckModel(ctx); err != nil {
		s.logger.Warn("embedding model unavailable, using keyword search", s.logger.Args("model", client.Model(), "error", err.Error()))
		return search.New(nil, nil, weights, s.logger)
	}
	store, err := embeddings.OpenStore(filepath.Join(h.StateDir(), embeddingsDir))
	if err != nil {
		s.logger.Warn("embedding store unavailable", s.logger.Args("error", err.Error()))
		return search.New(nil, nil, weights, s.logger)
	}
	return search.New(client, store, weights, s.logger)
}
