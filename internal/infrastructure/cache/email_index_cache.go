// Package cache keeps the canonical email index hot in redis.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

const keyPrefix = "account:email:"

// DefaultTTL bounds how long an entry lives; emails never move partitions so
// this only caps memory use.
const DefaultTTL = 24 * time.Hour

type EmailIndexCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewEmailIndexCache(rdb redis.Cmdable, ttl time.Duration) *EmailIndexCache {
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &EmailIndexCache{rdb: rdb, ttl: ttl}
}

func key(email string) string {
	return keyPrefix + entity.NormalizeEmail(email)
}

type cachedEntry struct {
	Role      entity.Role `json:"role"`
	AccountID string      `json:"account_id"`
}

func (c *EmailIndexCache) Get(ctx context.Context, email string) (*entity.EmailIndexEntry, bool, error) {
	var v cachedEntry
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, key(email), &v)
	if err != nil || !ok {
		return nil, false, err
	}
	if _, known := entity.ParseRole(string(v.Role)); !known {
		return nil, false, nil
	}
	return &entity.EmailIndexEntry{Email: entity.NormalizeEmail(email), Role: v.Role, AccountID: v.AccountID}, true, nil
}

func (c *EmailIndexCache) Put(ctx context.Context, e entity.EmailIndexEntry) error {
	return helpers.RedisSetJSON(ctx, c.rdb, key(e.Email), cachedEntry{Role: e.Role, AccountID: e.AccountID}, c.ttl)
}
