package article

import (
	"context"
	"sync"
	"testing"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice = model.Identity{UID: "u1", Email: "x@y.com"}
	bob   = model.Identity{UID: "u2", Email: "bob@y.com"}
)

// countingStore wraps a real store and counts writes.
type countingStore struct {
	store.Store
	mu      sync.Mutex
	updates int
}

func (c *countingStore) UpdateOne(ctx context.Context, name string, m store.Mutation) (bool, error) {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
	return c.Store.UpdateOne(ctx, name, m)
}

// gatedStore holds the first n reads until all n have arrived, forcing every
// caller to decide before any of them writes.
type gatedStore struct {
	store.Store
	mu      sync.Mutex
	pending int
	gate    sync.WaitGroup
}

func newGatedStore(st store.Store, n int) *gatedStore {
	g := &gatedStore{Store: st, pending: n}
	g.gate.Add(n)
	return g
}

func (g *gatedStore) FindOne(ctx context.Context, name string) (*model.Article, error) {
	g.mu.Lock()
	hold := g.pending > 0
	if hold {
		g.pending--
	}
	g.mu.Unlock()

	a, err := g.Store.FindOne(ctx, name)
	if hold {
		g.gate.Done()
		g.gate.Wait()
	}
	return a, err
}

func setup(t *testing.T, names ...string) *store.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewRedisStore(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for _, name := range names {
		a := model.NewArticle(name)
		require.NoError(t, st.Insert(context.Background(), &a))
	}
	return st
}

func TestService_Get(t *testing.T) {
	st := &countingStore{Store: setup(t, "a")}
	svc := NewService(st, zap.NewNop(), ModeConditional)
	ctx := context.Background()

	view, err := svc.Get(ctx, "a", model.Identity{})
	require.NoError(t, err)
	assert.Equal(t, "a", view.Name)
	assert.False(t, view.CanUpvote, "anonymous viewers cannot upvote")

	view, err = svc.Get(ctx, "a", alice)
	require.NoError(t, err)
	assert.True(t, view.CanUpvote)

	_, err = svc.Get(ctx, "missing", alice)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 0, st.updates, "reads must never write")
}

func TestService_Upvote_Scenario(t *testing.T) {
	for _, mode := range []UpvoteMode{ModeConditional, ModeLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			svc := NewService(setup(t, "a"), zap.NewNop(), mode)
			ctx := context.Background()

			view, err := svc.Upvote(ctx, "a", alice)
			require.NoError(t, err)
			assert.Equal(t, 1, view.Upvotes)
			assert.Equal(t, []string{"u1"}, view.UpvoteIDs)
			assert.False(t, view.CanUpvote)

			// Second upvote by the same viewer is a no-op
			view, err = svc.Upvote(ctx, "a", alice)
			require.NoError(t, err)
			assert.Equal(t, 1, view.Upvotes)
			assert.Equal(t, []string{"u1"}, view.UpvoteIDs)

			view, err = svc.Upvote(ctx, "a", bob)
			require.NoError(t, err)
			assert.Equal(t, 2, view.Upvotes)
			assert.Equal(t, []string{"u1", "u2"}, view.UpvoteIDs)
		})
	}
}

func TestService_Upvote_RepeatDoesNotWrite(t *testing.T) {
	st := &countingStore{Store: setup(t, "a")}
	svc := NewService(st, zap.NewNop(), ModeConditional)
	ctx := context.Background()

	_, err := svc.Upvote(ctx, "a", alice)
	require.NoError(t, err)
	_, err = svc.Upvote(ctx, "a", alice)
	require.NoError(t, err)

	assert.Equal(t, 1, st.updates)
}

func TestService_Upvote_NotFound(t *testing.T) {
	st := &countingStore{Store: setup(t)}
	svc := NewService(st, zap.NewNop(), ModeConditional)

	_, err := svc.Upvote(context.Background(), "missing", alice)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, st.updates)
}

func TestService_Upvote_Concurrent(t *testing.T) {
	const n = 4

	tests := []struct {
		mode        UpvoteMode
		wantUpvotes int
	}{
		// The store-side guard lets exactly one of them land.
		{mode: ModeConditional, wantUpvotes: 1},
		// Every caller read canUpvote=true before anyone wrote.
		{mode: ModeLegacy, wantUpvotes: n},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			base := setup(t, "a")
			svc := NewService(newGatedStore(base, n), zap.NewNop(), tt.mode)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Upvote(context.Background(), "a", alice)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := base.FindOne(context.Background(), "a")
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpvotes, got.Upvotes)
			assert.Len(t, got.UpvoteIDs, tt.wantUpvotes)
			assert.Equal(t, got.Upvotes, len(got.UpvoteIDs))
		})
	}
}

func TestService_AddComment(t *testing.T) {
	svc := NewService(setup(t, "a"), zap.NewNop(), ModeConditional)
	ctx := context.Background()

	view, err := svc.AddComment(ctx, "a", alice, "hi")
	require.NoError(t, err)
	assert.Equal(t, []model.Comment{{PostedBy: "x@y.com", Text: "hi"}}, view.Comments)

	view, err = svc.AddComment(ctx, "a", bob, "second")
	require.NoError(t, err)
	assert.Equal(t, []model.Comment{
		{PostedBy: "x@y.com", Text: "hi"},
		{PostedBy: "bob@y.com", Text: "second"},
	}, view.Comments, "earlier comments keep their order")
	assert.Equal(t, 0, view.Upvotes)
}

func TestService_AddComment_NotFound(t *testing.T) {
	base := setup(t)
	svc := NewService(base, zap.NewNop(), ModeConditional)

	_, err := svc.AddComment(context.Background(), "missing", alice, "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = base.FindOne(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound, "blind append must not create the article")
}

func TestNewService_DefaultsMode(t *testing.T) {
	svc := NewService(setup(t), zap.NewNop(), "bogus")
	assert.Equal(t, ModeConditional, svc.mode)
}
