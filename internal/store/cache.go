package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"insightQuestAPI/internal/types/user"
)

const defaultUserCacheSize = 1024

// CachedUsers puts a write-through LRU in front of a UserStore. Cached values
// are cloned on the way in and out so callers never share a record.
type CachedUsers struct {
	Store
	cache *lru.Cache
}

func NewCachedUsers(inner Store, size int) (*CachedUsers, error) {
	if size <= 0 {
		size = defaultUserCacheSize
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}

	return &CachedUsers{Store: inner, cache: cache}, nil
}

func (c *CachedUsers) GetUser(ctx context.Context, id string) (*user.User, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(*user.User).Clone(), nil
	}

	u, err := c.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Add(id, u.Clone())
	return u, nil
}

// SaveUser only updates the cache once the backing store accepted the write.
func (c *CachedUsers) SaveUser(ctx context.Context, u *user.User) error {
	if err := c.Store.SaveUser(ctx, u); err != nil {
		c.cache.Remove(u.ID)
		return err
	}

	c.cache.Add(u.ID, u.Clone())
	return nil
}

func (c *CachedUsers) Len() int {
	return c.cache.Len()
}
