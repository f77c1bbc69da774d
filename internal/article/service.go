package article

import (
	"context"
	"fmt"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"go.uber.org/zap"
)

// UpvoteMode decides how the upvote-once rule reaches the store.
type UpvoteMode string

const (
	// ModeConditional sends the upvote with a store-side "uid not yet
	// present" guard, so concurrent upvotes by one viewer count once.
	ModeConditional UpvoteMode = "conditional"
	// ModeLegacy only checks the freshly read document. Two concurrent
	// upvotes by the same viewer can both pass the check and both land.
	ModeLegacy UpvoteMode = "legacy"
)

// Valid reports whether m is a known mode.
func (m UpvoteMode) Valid() bool {
	return m == ModeConditional || m == ModeLegacy
}

// Service implements reading, upvoting and commenting on articles.
type Service struct {
	store  store.Store
	logger *zap.Logger
	mode   UpvoteMode
}

func NewService(st store.Store, logger *zap.Logger, mode UpvoteMode) *Service {
	if !mode.Valid() {
		mode = ModeConditional
	}
	return &Service{
		store:  st,
		logger: logger,
		mode:   mode,
	}
}

// Get returns the article with the viewer's canUpvote flag. It never writes.
func (s *Service) Get(ctx context.Context, name string, viewer model.Identity) (*model.ArticleView, error) {
	a, err := s.store.FindOne(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get article %q: %w", name, err)
	}
	return model.NewArticleView(a, viewer), nil
}

// Upvote counts the viewer once. Repeat upvotes leave the article unchanged.
// The article is read again after the decision so the result reflects any
// concurrent writes.
func (s *Service) Upvote(ctx context.Context, name string, viewer model.Identity) (*model.ArticleView, error) {
	logger := s.logger.With(zap.String("article", name), zap.String("uid", viewer.UID))

	a, err := s.store.FindOne(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("upvote article %q: %w", name, err)
	}

	if a.CanUpvote(viewer) {
		m := store.Mutation{IncUpvotes: 1, PushUpvoteID: viewer.UID}
		if s.mode == ModeConditional {
			m.UnlessUpvotedBy = viewer.UID
		}
		applied, err := s.store.UpdateOne(ctx, name, m)
		if err != nil {
			return nil, fmt.Errorf("upvote article %q: %w", name, err)
		}
		logger.Debug("Upvote issued", zap.Bool("applied", applied))
	} else {
		logger.Debug("Upvote skipped, already counted")
	}

	return s.reread(ctx, name, viewer)
}

// AddComment appends a comment signed with the viewer's email. The append is
// blind; a missing article shows up as ErrNotFound on the re-read.
func (s *Service) AddComment(ctx context.Context, name string, viewer model.Identity, text string) (*model.ArticleView, error) {
	comment := model.Comment{PostedBy: viewer.Email, Text: text}
	applied, err := s.store.UpdateOne(ctx, name, store.Mutation{PushComment: &comment})
	if err != nil {
		return nil, fmt.Errorf("comment on article %q: %w", name, err)
	}
	s.logger.Debug("Comment appended",
		zap.String("article", name),
		zap.String("uid", viewer.UID),
		zap.Bool("applied", applied))

	return s.reread(ctx, name, viewer)
}

func (s *Service) reread(ctx context.Context, name string, viewer model.Identity) (*model.ArticleView, error) {
	a, err := s.store.FindOne(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reload article %q: %w", name, err)
	}
	return model.NewArticleView(a, viewer), nil
}
