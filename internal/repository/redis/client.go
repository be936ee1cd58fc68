package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessTokenKeyPrefix = "access_token:"

// NewClient connects to Redis and verifies the connection. The token
// cache is load-bearing for revocation, so startup fails without it.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis: %v", err)
	}

	return client, nil
}

// TokenCache stores the single currently-valid access token per identity.
// The slot is per-identity, not per-device: every login overwrites it and
// sign-out from any device clears it.
type TokenCache struct {
	client *redis.Client
}

func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func tokenKey(identityID int64) string {
	return accessTokenKeyPrefix + strconv.FormatInt(identityID, 10)
}

// PutAccessToken overwrites the identity's token slot with the given TTL.
func (c *TokenCache) PutAccessToken(ctx context.Context, identityID int64, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(identityID), token, ttl).Err()
}

// GetAccessToken returns the cached token, or "" when the slot is empty
// or expired.
func (c *TokenCache) GetAccessToken(ctx context.Context, identityID int64) (string, error) {
	val, err := c.client.Get(ctx, tokenKey(identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// DeleteAccessToken clears the identity's token slot, revoking the fast
// path for every device of that identity.
func (c *TokenCache) DeleteAccessToken(ctx context.Context, identityID int64) error {
	return c.client.Del(ctx, tokenKey(identityID)).Err()
}
