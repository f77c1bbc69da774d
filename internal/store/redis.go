package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each article as a JSON value under article:<name>.
// Updates run as WATCH/MULTI/EXEC transactions so a write never lands on top
// of a document that changed after it was read.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) FindOne(ctx context.Context, name string) (*model.Article, error) {
	val, err := s.rdb.Get(ctx, articleKey(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var article model.Article
	if err := json.Unmarshal(val, &article); err != nil {
		return nil, fmt.Errorf("decode article %q: %w", name, err)
	}
	article.Normalize()
	return &article, nil
}

func (s *RedisStore) Insert(ctx context.Context, article *model.Article) error {
	article.Normalize()
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, articleKey(article.Name), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) UpdateOne(ctx context.Context, name string, m Mutation) (bool, error) {
	key := articleKey(name)

	var matched bool
	txf := func(tx *redis.Tx) error {
		matched = false

		val, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// Missing document: the operators are a no-op.
			return nil
		} else if err != nil {
			return err
		}

		var article model.Article
		if err := json.Unmarshal(val, &article); err != nil {
			return fmt.Errorf("decode article %q: %w", name, err)
		}
		if !apply(&article, m) {
			return nil
		}

		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			matched = true
		}
		return err
	}

	// A failed EXEC means another writer got in first; someone always wins,
	// so keep retrying until the caller gives up.
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return matched, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return false, err
		}
	}
}
