package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerStore is the embedded, single-process backend. Writers are
// serialized by mu, so a read-modify-write never races another one and
// never fails with badger.ErrConflict.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// NewBadgerStore opens the database at path. An empty path opens an
// in-memory database.
func NewBadgerStore(path string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

// RunGC reclaims value-log space every interval until ctx is done.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Keep collecting until badger reports nothing left to rewrite.
			for {
				err := s.db.RunValueLogGC(0.7)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
					s.logger.Warn("Badger value log GC failed", zap.Error(err))
				}
				break
			}
		}
	}
}

func (s *BadgerStore) FindOne(ctx context.Context, name string) (*model.Article, error) {
	var article model.Article
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(articleKey(name)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &article)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	article.Normalize()
	return &article, nil
}

func (s *BadgerStore) Insert(ctx context.Context, article *model.Article) error {
	article.Normalize()
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}

	key := []byte(articleKey(article.Name))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) UpdateOne(ctx context.Context, name string, m Mutation) (bool, error) {
	key := []byte(articleKey(name))

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched bool
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var article model.Article
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &article)
		}); err != nil {
			return err
		}
		if !apply(&article, m) {
			return nil
		}

		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		matched = true
		return txn.Set(key, data)
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}
