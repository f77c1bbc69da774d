package store

import (
	"context"
	"errors"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"
)

var (
	ErrNotFound = errors.New("article not found")
	ErrExists   = errors.New("article already exists")
)

// Mutation is the set of update operators applied to one article in a
// single atomic step.
type Mutation struct {
	IncUpvotes   int
	PushUpvoteID string
	PushComment  *model.Comment

	// UnlessUpvotedBy makes the step conditional: nothing is written when
	// the uid is already in upvoteIds.
	UnlessUpvotedBy string
}

// Store is a key-addressed collection of article documents.
type Store interface {
	FindOne(ctx context.Context, name string) (*model.Article, error)
	// UpdateOne reports matched=false, without writing, when no article has
	// the name or the mutation's guard fails.
	UpdateOne(ctx context.Context, name string, m Mutation) (bool, error)
	Insert(ctx context.Context, article *model.Article) error
	Ping(ctx context.Context) error
	Close() error
}

// apply runs m against a decoded document. It is shared by the backends
// that store articles as opaque JSON values.
func apply(a *model.Article, m Mutation) bool {
	if m.UnlessUpvotedBy != "" && a.HasUpvoted(m.UnlessUpvotedBy) {
		return false
	}
	a.Upvotes += m.IncUpvotes
	if m.PushUpvoteID != "" {
		a.UpvoteIDs = append(a.UpvoteIDs, m.PushUpvoteID)
	}
	if m.PushComment != nil {
		a.Comments = append(a.Comments, *m.PushComment)
	}
	return true
}

func articleKey(name string) string {
	return "article:" + name
}
