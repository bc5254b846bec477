package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PostSlugKeyPrefix = "post:slug:%s"
	PublishedListKey  = "posts:published"
	PostSlugTTL       = 30 * time.Minute
	PublishedListTTL  = 2 * time.Minute

	// generationTTL outlives any single fetch so a fill started before an
	// invalidation always sees the bump.
	generationTTL = 24 * time.Hour
)

var errStaleFill = errors.New("cache: key invalidated during fill")

func PostSlugKey(slug string) string {
	return fmt.Sprintf(PostSlugKeyPrefix, slug)
}

func generationKey(key string) string {
	return key + ":gen"
}

// Invalidate deletes keys and bumps their generation, which discards any
// fill that read the database before this call.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_, _ = client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, k := range keys {
			pipe.Incr(ctx, generationKey(k))
			pipe.Expire(ctx, generationKey(k), generationTTL)
		}
		return nil
	})
}

// InvalidatePost drops every cached view a post write can affect.
func InvalidatePost(ctx context.Context, slugs ...string) {
	keys := []string{PublishedListKey}
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, PostSlugKey(s))
		}
	}
	Invalidate(ctx, keys...)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Aside tries Redis first; on a miss or a cache error it calls fetch, which
// must populate dest, then stores dest with ttl on a best-effort basis. The
// store is skipped when the key was invalidated while fetch ran.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	gen, genErr := generation(ctx, key)

	if err := fetch(); err != nil {
		return err
	}

	if genErr == nil {
		_ = fillIfCurrent(ctx, key, gen, dest, ttl)
	}
	return nil
}

// generation returns the current generation of key, "" when it was never
// invalidated.
func generation(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", nil
	}
	g, err := client.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return g, err
}

// fillIfCurrent stores v under key only while the generation is still gen.
func fillIfCurrent(ctx context.Context, key, gen string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	gk := generationKey(key)
	return client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, gk)
}
