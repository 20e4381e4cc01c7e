// Package follow implements the directed follow graph between users and the
// followed-posts feed built on it.
//
// Edges are unique per ordered pair; the storage layer enforces this with a
// composite key and insert-or-ignore, so concurrent Follow calls on the same
// pair leave exactly one edge. Self-edges are valid and put a user's own
// posts in their feed.
package follow

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/nmheeir/Flask-Web-Development/models"
)

// DefaultPageSize is the number of posts fetched per feed query.
const DefaultPageSize = 20

// ErrTransientUser is returned when a mutating call names a user that has
// not been stored yet.
var ErrTransientUser = errors.New("user is not persisted")

// Cursor is a keyset position in a feed ordered by (Timestamp, ID) descending.
type Cursor struct {
	Timestamp time.Time
	ID        int64
}

// Page selects a slice of an edge listing.
type Page struct {
	Offset int
	Limit  int
}

// Store is the persistence contract of the graph.
type Store interface {
	// InsertEdge stores edge unless the pair already exists and reports
	// whether a row was created.
	InsertEdge(ctx context.Context, edge models.FollowEdge) (bool, error)
	// DeleteEdge removes the pair and reports whether a row was deleted.
	DeleteEdge(ctx context.Context, followerID, followedID int64) (bool, error)
	EdgeExists(ctx context.Context, followerID, followedID int64) (bool, error)
	// FeedPage returns up to limit posts by authors userID follows, newest
	// first, strictly after the cursor when one is given.
	FeedPage(ctx context.Context, userID int64, after *Cursor, limit int) ([]models.Post, error)
	Followers(ctx context.Context, userID int64, page Page) ([]models.FollowEdge, error)
	Following(ctx context.Context, userID int64, page Page) ([]models.FollowEdge, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
}

// Graph operates on a Store. It keeps no state besides its options.
type Graph struct {
	store    Store
	now      func() time.Time
	pageSize int
}

// Option configures a Graph.
type Option func(*Graph)

// WithClock sets the time source used for edge timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// WithPageSize sets the feed page size.
func WithPageSize(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.pageSize = n
		}
	}
}

func New(store Store, opts ...Option) *Graph {
	g := &Graph{
		store:    store,
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Follow creates the edge follower -> followed. Following twice is a no-op.
func (g *Graph) Follow(ctx context.Context, followerID, followedID int64) error {
	if followerID == 0 || followedID == 0 {
		return ErrTransientUser
	}
	_, err := g.store.InsertEdge(ctx, models.FollowEdge{
		FollowerID: followerID,
		FollowedID: followedID,
		Timestamp:  g.now().UTC(),
	})
	return err
}

// Unfollow removes the edge if present.
func (g *Graph) Unfollow(ctx context.Context, followerID, followedID int64) error {
	if followerID == 0 || followedID == 0 {
		return nil
	}
	_, err := g.store.DeleteEdge(ctx, followerID, followedID)
	return err
}

// IsFollowing reports whether followerID follows followedID. A transient
// followed user has no edges.
func (g *Graph) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	if followedID == 0 || followerID == 0 {
		return false, nil
	}
	return g.store.EdgeExists(ctx, followerID, followedID)
}

// IsFollowedBy reports whether userID is followed by followerID.
func (g *Graph) IsFollowedBy(ctx context.Context, userID, followerID int64) (bool, error) {
	if followerID == 0 || userID == 0 {
		return false, nil
	}
	return g.store.EdgeExists(ctx, followerID, userID)
}

// FollowedFeed yields the posts of every author userID follows, newest first.
// Posts are fetched page by page as the sequence is consumed. Each range over
// the returned sequence starts again from the newest post. A storage error
// is yielded once and ends the sequence.
func (g *Graph) FollowedFeed(ctx context.Context, userID int64) iter.Seq2[models.Post, error] {
	return func(yield func(models.Post, error) bool) {
		if userID == 0 {
			return
		}

		var cursor *Cursor
		for {
			if err := ctx.Err(); err != nil {
				yield(models.Post{}, err)
				return
			}

			page, err := g.store.FeedPage(ctx, userID, cursor, g.pageSize)
			if err != nil {
				yield(models.Post{}, err)
				return
			}
			for _, post := range page {
				if !yield(post, nil) {
					return
				}
			}
			if len(page) < g.pageSize {
				return
			}

			last := page[len(page)-1]
			cursor = &Cursor{Timestamp: last.Timestamp, ID: last.ID}
		}
	}
}

// EnsureAllSelfFollowed creates the missing self-edges for ids and returns
// how many were created. Zero IDs are skipped. Safe to run repeatedly.
func (g *Graph) EnsureAllSelfFollowed(ctx context.Context, ids []int64) (int, error) {
	created := 0
	now := g.now().UTC()
	for _, id := range ids {
		if id == 0 {
			continue
		}
		ok, err := g.store.InsertEdge(ctx, models.FollowEdge{FollowerID: id, FollowedID: id, Timestamp: now})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Followers lists the users following userID, newest edge first.
func (g *Graph) Followers(ctx context.Context, userID int64, page Page) ([]models.FollowEdge, error) {
	return g.store.Followers(ctx, userID, g.normalize(page))
}

// Following lists the users userID follows, newest edge first.
func (g *Graph) Following(ctx context.Context, userID int64, page Page) ([]models.FollowEdge, error) {
	return g.store.Following(ctx, userID, g.normalize(page))
}

// Counts returns the follower and followed totals of userID, not counting
// the self-edge.
func (g *Graph) Counts(ctx context.Context, userID int64) (followers, following int, err error) {
	if userID == 0 {
		return 0, 0, nil
	}
	if followers, err = g.store.CountFollowers(ctx, userID); err != nil {
		return 0, 0, err
	}
	if following, err = g.store.CountFollowing(ctx, userID); err != nil {
		return 0, 0, err
	}
	self, err := g.store.EdgeExists(ctx, userID, userID)
	if err != nil {
		return 0, 0, err
	}
	if self {
		followers--
		following--
	}
	return followers, following, nil
}

func (g *Graph) normalize(page Page) Page {
	if page.Limit <= 0 {
		page.Limit = g.pageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
