package follow

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/nmheeir/Flask-Web-Development/models"
)

type pair struct{ follower, followed int64 }

type memStore struct {
	edges      map[pair]models.FollowEdge
	posts      []models.Post
	feedCalls  int
	failFeedAt int
}

func newMemStore() *memStore {
	return &memStore{edges: make(map[pair]models.FollowEdge)}
}

func (s *memStore) InsertEdge(_ context.Context, edge models.FollowEdge) (bool, error) {
	k := pair{edge.FollowerID, edge.FollowedID}
	if _, ok := s.edges[k]; ok {
		return false, nil
	}
	s.edges[k] = edge
	return true, nil
}

func (s *memStore) DeleteEdge(_ context.Context, follower, followed int64) (bool, error) {
	k := pair{follower, followed}
	_, ok := s.edges[k]
	delete(s.edges, k)
	return ok, nil
}

func (s *memStore) EdgeExists(_ context.Context, follower, followed int64) (bool, error) {
	_, ok := s.edges[pair{follower, followed}]
	return ok, nil
}

func (s *memStore) FeedPage(_ context.Context, userID int64, after *Cursor, limit int) ([]models.Post, error) {
	s.feedCalls++
	if s.failFeedAt > 0 && s.feedCalls == s.failFeedAt {
		return nil, errors.New("db down")
	}

	var out []models.Post
	for _, p := range s.posts {
		if _, ok := s.edges[pair{userID, p.AuthorID}]; !ok {
			continue
		}
		if after != nil {
			if p.Timestamp.After(after.Timestamp) {
				continue
			}
			if p.Timestamp.Equal(after.Timestamp) && p.ID >= after.ID {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) list(match func(pair) bool, page Page) []models.FollowEdge {
	var out []models.FollowEdge
	for k, e := range s.edges {
		if match(k) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if page.Offset >= len(out) {
		return nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out
}

func (s *memStore) Followers(_ context.Context, userID int64, page Page) ([]models.FollowEdge, error) {
	return s.list(func(k pair) bool { return k.followed == userID }, page), nil
}

func (s *memStore) Following(_ context.Context, userID int64, page Page) ([]models.FollowEdge, error) {
	return s.list(func(k pair) bool { return k.follower == userID }, page), nil
}

func (s *memStore) CountFollowers(_ context.Context, userID int64) (int, error) {
	n := 0
	for k := range s.edges {
		if k.followed == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountFollowing(_ context.Context, userID int64) (int, error) {
	n := 0
	for k := range s.edges {
		if k.follower == userID {
			n++
		}
	}
	return n, nil
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFollowIsIdempotent(t *testing.T) {
	store := newMemStore()
	g := New(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := g.Follow(ctx, 1, 2); err != nil {
			t.Fatalf("Follow error: %v", err)
		}
	}
	if len(store.edges) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(store.edges))
	}

	ok, err := g.IsFollowing(ctx, 1, 2)
	if err != nil || !ok {
		t.Fatalf("expected 1 to follow 2, got %v, %v", ok, err)
	}
	ok, err = g.IsFollowedBy(ctx, 2, 1)
	if err != nil || !ok {
		t.Fatalf("expected 2 to be followed by 1, got %v, %v", ok, err)
	}
	ok, _ = g.IsFollowing(ctx, 2, 1)
	if ok {
		t.Fatal("edges are directed")
	}
}

func TestUnfollowIsIdempotent(t *testing.T) {
	store := newMemStore()
	g := New(store)
	ctx := context.Background()

	if err := g.Follow(ctx, 1, 2); err != nil {
		t.Fatalf("Follow error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := g.Unfollow(ctx, 1, 2); err != nil {
			t.Fatalf("Unfollow error: %v", err)
		}
	}
	if ok, _ := g.IsFollowing(ctx, 1, 2); ok {
		t.Fatal("expected edge to be removed")
	}
}

func TestTransientUsers(t *testing.T) {
	g := New(newMemStore())
	ctx := context.Background()

	if err := g.Follow(ctx, 1, 0); !errors.Is(err, ErrTransientUser) {
		t.Fatalf("expected ErrTransientUser, got %v", err)
	}
	if ok, err := g.IsFollowing(ctx, 1, 0); ok || err != nil {
		t.Fatalf("transient followed must be false, got %v, %v", ok, err)
	}
	if ok, err := g.IsFollowedBy(ctx, 1, 0); ok || err != nil {
		t.Fatalf("transient follower must be false, got %v, %v", ok, err)
	}
	if err := g.Unfollow(ctx, 0, 1); err != nil {
		t.Fatalf("Unfollow transient should be a no-op, got %v", err)
	}
}

func TestEnsureAllSelfFollowed(t *testing.T) {
	store := newMemStore()
	g := New(store)
	ctx := context.Background()

	if err := g.Follow(ctx, 2, 2); err != nil {
		t.Fatalf("Follow error: %v", err)
	}

	created, err := g.EnsureAllSelfFollowed(ctx, []int64{1, 2, 3, 0})
	if err != nil {
		t.Fatalf("EnsureAllSelfFollowed error: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 new self edges, got %d", created)
	}
	for _, id := range []int64{1, 2, 3} {
		if ok, _ := g.IsFollowing(ctx, id, id); !ok {
			t.Fatalf("user %d is not self-following", id)
		}
	}

	before := len(store.edges)
	created, err = g.EnsureAllSelfFollowed(ctx, []int64{1, 2, 3})
	if err != nil || created != 0 || len(store.edges) != before {
		t.Fatalf("second run must change nothing, created=%d err=%v", created, err)
	}
}

func seedPosts(store *memStore) {
	// Authors 1, 2, 3; two posts share a timestamp to exercise the id tie-break.
	store.posts = []models.Post{
		{ID: 1, AuthorID: 1, Timestamp: epoch.Add(1 * time.Minute)},
		{ID: 2, AuthorID: 2, Timestamp: epoch.Add(2 * time.Minute)},
		{ID: 3, AuthorID: 3, Timestamp: epoch.Add(3 * time.Minute)},
		{ID: 4, AuthorID: 2, Timestamp: epoch.Add(4 * time.Minute)},
		{ID: 5, AuthorID: 1, Timestamp: epoch.Add(4 * time.Minute)},
		{ID: 6, AuthorID: 2, Timestamp: epoch.Add(5 * time.Minute)},
	}
}

func collect(t *testing.T, g *Graph, userID int64) []int64 {
	t.Helper()
	var ids []int64
	for post, err := range g.FollowedFeed(context.Background(), userID) {
		if err != nil {
			t.Fatalf("feed error: %v", err)
		}
		ids = append(ids, post.ID)
	}
	return ids
}

func TestFollowedFeedOrderAndPaging(t *testing.T) {
	store := newMemStore()
	seedPosts(store)
	g := New(store, WithPageSize(2))
	ctx := context.Background()

	_ = g.Follow(ctx, 1, 1)
	_ = g.Follow(ctx, 1, 2)

	got := collect(t, g, 1)
	want := []int64{6, 5, 4, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("feed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("feed = %v, want %v", got, want)
		}
	}
	if store.feedCalls != 3 {
		t.Fatalf("expected 3 page queries, got %d", store.feedCalls)
	}

	again := collect(t, g, 1)
	if len(again) != len(want) || again[0] != 6 {
		t.Fatalf("feed is not restartable: %v", again)
	}
}

func TestFollowedFeedIsLazy(t *testing.T) {
	store := newMemStore()
	seedPosts(store)
	g := New(store, WithPageSize(2))
	ctx := context.Background()
	_ = g.Follow(ctx, 1, 2)

	for post, err := range g.FollowedFeed(ctx, 1) {
		if err != nil {
			t.Fatalf("feed error: %v", err)
		}
		if post.ID != 6 {
			t.Fatalf("expected newest post first, got %d", post.ID)
		}
		break
	}
	if store.feedCalls != 1 {
		t.Fatalf("expected a single page query, got %d", store.feedCalls)
	}
}

func TestFollowedFeedWithoutSelfFollow(t *testing.T) {
	store := newMemStore()
	seedPosts(store)
	g := New(store)
	_ = g.Follow(context.Background(), 1, 3)

	got := collect(t, g, 1)
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected only author 3's post, got %v", got)
	}
	if ids := collect(t, g, 0); len(ids) != 0 {
		t.Fatalf("transient user must have an empty feed, got %v", ids)
	}
}

func TestFollowedFeedYieldsStoreError(t *testing.T) {
	store := newMemStore()
	seedPosts(store)
	store.failFeedAt = 2
	g := New(store, WithPageSize(2))
	_ = g.Follow(context.Background(), 1, 2)

	var seen int
	var gotErr error
	for _, err := range g.FollowedFeed(context.Background(), 1) {
		if err != nil {
			gotErr = err
			continue
		}
		seen++
	}
	if seen != 2 || gotErr == nil {
		t.Fatalf("expected 2 posts then an error, got %d posts, err=%v", seen, gotErr)
	}
}

func TestCountsExcludeSelf(t *testing.T) {
	g := New(newMemStore())
	ctx := context.Background()
	_ = g.Follow(ctx, 1, 1)
	_ = g.Follow(ctx, 2, 1)
	_ = g.Follow(ctx, 3, 1)
	_ = g.Follow(ctx, 1, 2)

	followers, following, err := g.Counts(ctx, 1)
	if err != nil {
		t.Fatalf("Counts error: %v", err)
	}
	if followers != 2 || following != 1 {
		t.Fatalf("Counts = (%d, %d), want (2, 1)", followers, following)
	}

	edges, err := g.Followers(ctx, 1, Page{})
	if err != nil || len(edges) != 3 {
		t.Fatalf("Followers = %d edges, err=%v", len(edges), err)
	}
}
