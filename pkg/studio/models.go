package studio

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/germanamz/studio/pkg/catalog"
)

// modelCache keeps the last fetched model list in memory and, when path is
// set, on disk so pickers have something to show while offline.
type modelCache struct {
	path string

	mu     sync.Mutex
	models []catalog.Model
}

func (c *modelCache) get() []catalog.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.models
}

func (c *modelCache) set(models []catalog.Model) {
	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
}

func (c *modelCache) load() ([]catalog.Model, error) {
	if c.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var models []catalog.Model
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *modelCache) store(models []catalog.Model) error {
	if c.path == "" {
		return nil
	}

	data, err := json.Marshal(models)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

// Models returns the model list with favorites first. The list is fetched
// on first use and then served from memory; see RefreshModels.
func (s *Studio) Models(ctx context.Context) []catalog.Model {
	models := s.models.get()
	if models == nil {
		models = s.RefreshModels(ctx)
	}
	return catalog.Sort(models, s.store.Settings().Favorites)
}

// RefreshModels fetches the model list again. When the fetch yields nothing
// the on-disk copy is used instead. The result is unsorted.
func (s *Studio) RefreshModels(ctx context.Context) []catalog.Model {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	models := s.client.ListModels(ctx)
	if len(models) > 0 {
		s.models.set(models)
		if err := s.models.store(models); err != nil {
			s.log.Warn("studio: write model cache", "error", err)
		}
		return models
	}

	cached, err := s.models.load()
	if err != nil {
		s.log.Warn("studio: read model cache", "error", err)
	}
	if len(cached) > 0 {
		s.log.Info("studio: using cached model list", "count", len(cached))
		s.models.set(cached)
		return cached
	}

	return models
}

// SearchModels filters Models by a fuzzy query and the reasoning flag.
func (s *Studio) SearchModels(ctx context.Context, query string, reasoningOnly bool) []catalog.Model {
	return catalog.Filter(s.Models(ctx), query, reasoningOnly)
}
