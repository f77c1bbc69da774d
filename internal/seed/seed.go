// Package seed loads article fixtures into a store for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fixtureFile struct {
	Articles []model.Article `yaml:"articles"`
}

// Parse reads a YAML document of the form `articles: [{name: ...}, ...]`.
func Parse(r io.Reader) ([]model.Article, error) {
	var f fixtureFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	seen := make(map[string]bool, len(f.Articles))
	for i := range f.Articles {
		a := &f.Articles[i]
		if a.Name == "" {
			return nil, fmt.Errorf("fixture %d: name is required", i)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("fixture %d: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true

		voters := make(map[string]bool, len(a.UpvoteIDs))
		for _, uid := range a.UpvoteIDs {
			if uid == "" {
				return nil, fmt.Errorf("fixture %q: empty upvote id", a.Name)
			}
			if voters[uid] {
				return nil, fmt.Errorf("fixture %q: uid %q upvoted twice", a.Name, uid)
			}
			voters[uid] = true
		}

		a.Normalize()
		// upvotes is derived from the distinct voters
		a.Upvotes = len(a.UpvoteIDs)
	}
	return f.Articles, nil
}

// Apply inserts every article, leaving existing ones untouched.
func Apply(ctx context.Context, st store.Store, articles []model.Article, logger *zap.Logger) (int, error) {
	inserted := 0
	for i := range articles {
		err := st.Insert(ctx, &articles[i])
		if errors.Is(err, store.ErrExists) {
			logger.Info("Article exists, skipping", zap.String("name", articles[i].Name))
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("insert %q: %w", articles[i].Name, err)
		}
		inserted++
	}
	return inserted, nil
}
