package engine

import (
	"context"
	"sync"
	"time"

	"taskmind/internal/llm"
)

const modelCacheTTL = 5 * time.Minute

// modelCache holds the whitelist-filtered catalog so GET /models does not
// hit the provider on every request.
type modelCache struct {
	mu      sync.Mutex
	models  []llm.Descriptor
	fetched time.Time
}

// ListModels returns the whitelisted chat models from the upstream catalog,
// sorted by display name. Results are cached briefly.
func (e Engine) ListModels(ctx context.Context) ([]llm.Descriptor, error) {
	e.models.mu.Lock()
	defer e.models.mu.Unlock()
	if e.models.models != nil && e.now().Sub(e.models.fetched) < modelCacheTTL {
		return e.models.models, nil
	}
	catalog, err := e.Provider.ListModels(ctx)
	if err != nil {
		// Serve a stale catalog over failing the request.
		if e.models.models != nil {
			return e.models.models, nil
		}
		return nil, err
	}
	filtered := e.Whitelist.FilterCatalog(catalog)
	e.models.models = filtered
	e.models.fetched = e.now()
	return filtered, nil
}
