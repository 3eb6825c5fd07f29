package projectstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const projectCacheSize = 256

// cachedStore keeps recently read records in front of a database backend.
// Reads by ID are served from the cache; GetByRepoRoot primes it with what
// it fetched. Put and Delete invalidate so the next read sees the store.
// Cached records are cloned on the way in and out, so callers can mutate
// what they get back.
type cachedStore struct {
	inner Store
	cache *lru.Cache[string, *Project]
}

func withCache(inner Store) Store {
	cache, err := lru.New[string, *Project](projectCacheSize)
	if err != nil {
		return inner
	}
	return &cachedStore{inner: inner, cache: cache}
}

func (c *cachedStore) Get(ctx context.Context, id string) (*Project, error) {
	if p, ok := c.cache.Get(id); ok {
		return p.clone(), nil
	}
	p, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(p.ID, p.clone())
	return p, nil
}

func (c *cachedStore) GetByRepoRoot(ctx context.Context, repoRoot string) (*Project, error) {
	p, err := c.inner.GetByRepoRoot(ctx, repoRoot)
	if err != nil {
		return nil, err
	}
	c.cache.Add(p.ID, p.clone())
	return p, nil
}

func (c *cachedStore) List(ctx context.Context, userID string) ([]*Project, error) {
	return c.inner.List(ctx, userID)
}

func (c *cachedStore) Put(ctx context.Context, p *Project) error {
	if err := c.inner.Put(ctx, p); err != nil {
		return err
	}
	c.cache.Remove(p.ID)
	return nil
}

func (c *cachedStore) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.cache.Remove(id)
	return nil
}

func (c *cachedStore) Close() error { return c.inner.Close() }
