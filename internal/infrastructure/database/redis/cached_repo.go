package redis

import (
	"context"
	"fmt"

	"github.com/kate-fie/fragment-network-merges/internal/application/expansion"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
)

// cachedGraphRepo decorates a GraphRepository with read-through caching.
// Negative results are cached too: a fragment absent from the network stays
// absent until the next catalogue release.
type cachedGraphRepo struct {
	inner expansion.GraphRepository
	cache *Cache
}

// NewCachedGraphRepo wraps repo so repeated expansion queries are served from
// Redis.
func NewCachedGraphRepo(repo expansion.GraphRepository, cache *Cache, _ logging.Logger) expansion.GraphRepository {
	return &cachedGraphRepo{inner: repo, cache: cache}
}

func (r *cachedGraphRepo) NodeExists(ctx context.Context, smiles string) (bool, error) {
	var exists bool
	err := r.cache.GetOrLoad(ctx, "exists:"+smiles, &exists, func(ctx context.Context) (any, error) {
		return r.inner.NodeExists(ctx, smiles)
	})
	return exists, err
}

func (r *cachedGraphRepo) DescendantEdgeLabels(ctx context.Context, smiles string) ([]string, error) {
	var labels []string
	err := r.cache.GetOrLoad(ctx, "labels:"+smiles, &labels, func(ctx context.Context) (any, error) {
		return r.inner.DescendantEdgeLabels(ctx, smiles)
	})
	return labels, err
}

func (r *cachedGraphRepo) BoundedExpansion(ctx context.Context, smiles, synthon string, maxHops, minHeavyAtoms int) ([]expansion.ExpansionHit, error) {
	key := fmt.Sprintf("expand:%s|%s|%d|%d", smiles, synthon, maxHops, minHeavyAtoms)
	var hits []expansion.ExpansionHit
	err := r.cache.GetOrLoad(ctx, key, &hits, func(ctx context.Context) (any, error) {
		return r.inner.BoundedExpansion(ctx, smiles, synthon, maxHops, minHeavyAtoms)
	})
	return hits, err
}
