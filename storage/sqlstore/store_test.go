package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/internal/dbx"
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(dbx.SQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, s *Store, email, username string) *models.User {
	t.Helper()
	u := &models.User{
		Email:       email,
		Username:    username,
		MemberSince: base,
		LastSeen:    base,
		AvatarHash:  models.AvatarHash(email),
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	v, err := s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestUserRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "  John@Example.com ", "john")
	assert.NotZero(t, u.ID)
	assert.Equal(t, "john@example.com", u.Email)

	got, err := s.Users().UserByEmail(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.MemberSince.Equal(base))
	assert.Equal(t, time.UTC, got.MemberSince.Location())

	got.Confirmed = true
	got.Location = "Hanoi"
	require.NoError(t, s.Users().UpdateUser(ctx, got))

	again, err := s.Users().UserByUsername(ctx, "john")
	require.NoError(t, err)
	assert.True(t, again.Confirmed)
	assert.Equal(t, "Hanoi", again.Location)

	_, err = s.Users().UserByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	mustUser(t, s, "a@example.com", "a")

	err := s.Users().CreateUser(context.Background(), &models.User{
		Email: "A@example.com", Username: "other", MemberSince: base, LastSeen: base,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestRolesSaveAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, permission.Bootstrap(ctx, s.Roles(), permission.DefaultRoleDefs(), permission.DefaultRoleName))

	def, err := s.Roles().DefaultRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, permission.RoleUser, def.Name)

	admin, err := s.Roles().RoleByName(ctx, permission.RoleAdministrator)
	require.NoError(t, err)
	assert.Equal(t, permission.Mask(permission.All), admin.Permissions)

	byID, err := s.Roles().RoleByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin, byID)

	roles, err := s.Roles().ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	_, err = s.Roles().RoleByName(ctx, "Ghost")
	assert.ErrorIs(t, err, permission.ErrRoleNotFound)
}

func TestFollowEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", "a")
	b := mustUser(t, s, "b@example.com", "b")
	f := s.Follows()

	inserted, err := f.InsertEdge(ctx, models.FollowEdge{FollowerID: a.ID, FollowedID: b.ID, Timestamp: base})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = f.InsertEdge(ctx, models.FollowEdge{FollowerID: a.ID, FollowedID: b.ID, Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate edge must be a no-op")

	ok, err := f.EdgeExists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.EdgeExists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := f.Followers(ctx, b.ID, follow.Page{})
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].FollowerID)
	assert.True(t, followers[0].Timestamp.Equal(base))

	n, err := f.CountFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := f.DeleteEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.DeleteEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFeedPageOrderAndCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	reader := mustUser(t, s, "r@example.com", "r")
	author := mustUser(t, s, "w@example.com", "w")
	stranger := mustUser(t, s, "x@example.com", "x")

	_, err := s.Follows().InsertEdge(ctx, models.FollowEdge{FollowerID: reader.ID, FollowedID: author.ID, Timestamp: base})
	require.NoError(t, err)

	// Two posts share a timestamp; the higher id sorts first.
	stamps := []time.Duration{time.Minute, 2 * time.Minute, 2 * time.Minute, 3 * time.Minute}
	var ids []int64
	for i, d := range stamps {
		p := &models.Post{Body: fmt.Sprint("post ", i), Timestamp: base.Add(d), AuthorID: author.ID}
		require.NoError(t, s.Posts().CreatePost(ctx, p))
		ids = append(ids, p.ID)
	}
	require.NoError(t, s.Posts().CreatePost(ctx, &models.Post{Body: "noise", Timestamp: base.Add(time.Hour), AuthorID: stranger.ID}))

	first, err := s.Follows().FeedPage(ctx, reader.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[3], first[0].ID)
	assert.Equal(t, ids[2], first[1].ID)

	last := first[len(first)-1]
	rest, err := s.Follows().FeedPage(ctx, reader.ID, &follow.Cursor{Timestamp: last.Timestamp, ID: last.ID}, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, ids[1], rest[0].ID)
	assert.Equal(t, ids[0], rest[1].ID)
}

func TestCommentsAndLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "c@example.com", "c")

	p := &models.Post{Body: "hello", BodyHTML: "<p>hello</p>", Timestamp: base, AuthorID: u.ID}
	require.NoError(t, s.Posts().CreatePost(ctx, p))

	c := &models.Comment{Body: "nice", Timestamp: base.Add(time.Second), AuthorID: u.ID, PostID: p.ID}
	require.NoError(t, s.Posts().CreateComment(ctx, c))

	c.Disabled = true
	require.NoError(t, s.Posts().UpdateComment(ctx, c))

	got, err := s.Posts().CommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Disabled)

	comments, err := s.Posts().CommentsForPost(ctx, p.ID, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	require.NoError(t, s.Logs().CreateUserLog(ctx, &models.UserLog{UserID: u.ID, Action: models.ActionLogin, Timestamp: base, IP: "10.0.0.1"}))
	require.NoError(t, s.Logs().CreateUserLog(ctx, &models.UserLog{UserID: u.ID, Action: models.ActionLogout, Timestamp: base.Add(time.Minute)}))

	logs, err := s.Logs().UserLogs(ctx, u.ID, storage.Page{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionLogout, logs[0].Action)
	assert.Equal(t, "10.0.0.1", logs[1].IP)
}

func TestDeleteUserCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", "a")
	b := mustUser(t, s, "b@example.com", "b")

	_, err := s.Follows().InsertEdge(ctx, models.FollowEdge{FollowerID: a.ID, FollowedID: b.ID, Timestamp: base})
	require.NoError(t, err)
	_, err = s.Follows().InsertEdge(ctx, models.FollowEdge{FollowerID: b.ID, FollowedID: a.ID, Timestamp: base})
	require.NoError(t, err)

	p := &models.Post{Body: "x", Timestamp: base, AuthorID: a.ID}
	require.NoError(t, s.Posts().CreatePost(ctx, p))
	require.NoError(t, s.Posts().CreateComment(ctx, &models.Comment{Body: "y", Timestamp: base, AuthorID: b.ID, PostID: p.ID}))
	require.NoError(t, s.Logs().CreateUserLog(ctx, &models.UserLog{UserID: a.ID, Action: models.ActionLogin, Timestamp: base}))

	require.NoError(t, s.Users().DeleteUser(ctx, a.ID))

	n, err := s.Follows().CountFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Follows().CountFollowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Posts().PostByID(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ids, err := s.Users().UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids)

	assert.ErrorIs(t, s.Users().DeleteUser(ctx, a.ID), storage.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u := &models.User{Email: "t@example.com", Username: "t", MemberSince: base, LastSeen: base}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = s.Users().UserByEmail(ctx, "t@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWithSQLitePragmas(t *testing.T) {
	assert.Equal(t, "file:x?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", withSQLitePragmas("file:x"))
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", withSQLitePragmas("file:x?mode=memory"))
	assert.Equal(t, "file:x?_pragma=foreign_keys(0)&_pragma=busy_timeout(1)", withSQLitePragmas("file:x?_pragma=foreign_keys(0)&_pragma=busy_timeout(1)"))
}
