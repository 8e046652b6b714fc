// Package redisindex stores predicted completion times in Redis. Each plate is
// one string key holding the completion instant as fractional Unix seconds
// with microsecond precision.
package redisindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/evslot/core/completion"
)

const scanBatch = 100

// Index is a completion.Index backed by a Redis client.
type Index struct {
	rdb    *redis.Client
	prefix string
}

var _ completion.Index = (*Index)(nil)

// New wraps an existing client. Keys are namespaced with prefix.
func New(rdb *redis.Client, prefix string) *Index {
	return &Index{rdb: rdb, prefix: prefix}
}

// Open connects to Redis and verifies the server is reachable.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: time.Duration(cfg.DialTimeoutSeconds) * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return New(rdb, cfg.KeyPrefix), nil
}

func (i *Index) key(plate string) string { return i.prefix + plate }

func (i *Index) Get(ctx context.Context, plate string) (time.Time, error) {
	v, err := i.rdb.Get(ctx, i.key(plate)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, fmt.Errorf("%w: %s", completion.ErrNotFound, plate)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis get %s: %w", plate, err)
	}
	return decode(v)
}

func (i *Index) Set(ctx context.Context, plate string, at time.Time) error {
	if err := i.rdb.Set(ctx, i.key(plate), encode(at), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", plate, err)
	}
	return nil
}

func (i *Index) Delete(ctx context.Context, plate string) error {
	if err := i.rdb.Del(ctx, i.key(plate)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", plate, err)
	}
	return nil
}

// List scans the key space under the prefix. SCAN may return a key more than
// once, so keys are deduplicated. Keys removed between the scan and the value
// fetch are skipped.
func (i *Index) List(ctx context.Context) ([]completion.Entry, error) {
	var keys []string
	seen := make(map[string]struct{})
	iter := i.rdb.Scan(ctx, 0, i.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	res := make([]completion.Entry, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		vals, err := i.rdb.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget: %w", err)
		}
		for n, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			at, err := decode(s)
			if err != nil {
				return nil, err
			}
			res = append(res, completion.Entry{Plate: keys[start+n][len(i.prefix):], At: at})
		}
	}
	return res, nil
}

// Close closes the client.
func (i *Index) Close() error { return i.rdb.Close() }

func encode(at time.Time) string {
	us := at.UnixMicro()
	sign := ""
	if us < 0 {
		sign = "-"
		us = -us
	}
	return fmt.Sprintf("%s%d.%06d", sign, us/1_000_000, us%1_000_000)
}

func decode(v string) (time.Time, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed completion value %q: %w", v, err)
	}
	return time.UnixMicro(int64(math.Round(f * 1e6))).UTC(), nil
}
