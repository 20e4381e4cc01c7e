package flasky

import (
	"context"
	"iter"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

// FollowCounts holds follower totals without the self edge.
type FollowCounts struct {
	Followers int
	Following int
}

// requireMember loads userID and checks that its role grants perm.
func (e *Engine) requireMember(ctx context.Context, tx storage.Tx, userID int64, perm permission.Permission, action string) (Member, error) {
	user, err := e.loadUser(ctx, tx.Users(), userID)
	if err != nil {
		return Member{}, err
	}
	m, err := e.member(ctx, tx, user)
	if err != nil {
		return Member{}, err
	}
	if !m.Can(perm) {
		e.emitDenied(ctx, userID, action)
		return Member{}, ErrPermissionDenied
	}
	return m, nil
}

// Follow makes followerID follow followedID. The follower needs the FOLLOW
// permission. Following twice leaves one edge.
func (e *Engine) Follow(ctx context.Context, followerID, followedID int64) error {
	if err := e.ready(); err != nil {
		return err
	}

	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.requireMember(ctx, tx, followerID, permission.Follow, "follow"); err != nil {
			return err
		}
		if _, err := e.loadUser(ctx, tx.Users(), followedID); err != nil {
			return err
		}
		return e.graph(tx).Follow(ctx, followerID, followedID)
	})
	if err != nil {
		return e.persistErr(ctx, "follow", err)
	}

	e.metricInc(MetricFollow)
	e.emitAudit(ctx, auditEventFollow, true, followerID, nil, func() map[string]string {
		return map[string]string{"followed_id": subjectKey(followedID)}
	})
	return nil
}

// Unfollow removes the edge followerID -> followedID if present.
func (e *Engine) Unfollow(ctx context.Context, followerID, followedID int64) error {
	if err := e.ready(); err != nil {
		return err
	}

	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.requireMember(ctx, tx, followerID, permission.Follow, "unfollow"); err != nil {
			return err
		}
		return e.graph(tx).Unfollow(ctx, followerID, followedID)
	})
	if err != nil {
		return e.persistErr(ctx, "unfollow", err)
	}

	e.metricInc(MetricUnfollow)
	e.emitAudit(ctx, auditEventUnfollow, true, followerID, nil, func() map[string]string {
		return map[string]string{"followed_id": subjectKey(followedID)}
	})
	return nil
}

// IsFollowing reports whether followerID follows followedID.
func (e *Engine) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	ok, err := e.graph(e.store).IsFollowing(ctx, followerID, followedID)
	return ok, e.persistErr(ctx, "is following", err)
}

// IsFollowedBy reports whether userID is followed by followerID.
func (e *Engine) IsFollowedBy(ctx context.Context, userID, followerID int64) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	ok, err := e.graph(e.store).IsFollowedBy(ctx, userID, followerID)
	return ok, e.persistErr(ctx, "is followed by", err)
}

// Followers lists the edges pointing at userID, newest first.
func (e *Engine) Followers(ctx context.Context, userID int64, page follow.Page) ([]models.FollowEdge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	edges, err := e.graph(e.store).Followers(ctx, userID, page)
	if err != nil {
		return nil, e.persistErr(ctx, "followers", err)
	}
	return edges, nil
}

// Following lists the edges leaving userID, newest first.
func (e *Engine) Following(ctx context.Context, userID int64, page follow.Page) ([]models.FollowEdge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	edges, err := e.graph(e.store).Following(ctx, userID, page)
	if err != nil {
		return nil, e.persistErr(ctx, "following", err)
	}
	return edges, nil
}

// Counts returns follower and following totals of userID.
func (e *Engine) Counts(ctx context.Context, userID int64) (FollowCounts, error) {
	if err := e.ready(); err != nil {
		return FollowCounts{}, err
	}
	followers, following, err := e.graph(e.store).Counts(ctx, userID)
	if err != nil {
		return FollowCounts{}, e.persistErr(ctx, "follow counts", err)
	}
	return FollowCounts{Followers: followers, Following: following}, nil
}

// FollowedFeed yields the posts of every author userID follows, newest
// first, one page at a time. See follow.Graph.FollowedFeed.
func (e *Engine) FollowedFeed(ctx context.Context, userID int64) iter.Seq2[models.Post, error] {
	if err := e.ready(); err != nil {
		return func(yield func(models.Post, error) bool) {
			yield(models.Post{}, err)
		}
	}
	return e.graph(e.store).FollowedFeed(ctx, userID)
}

// EnsureSelfFollows adds the missing self edges for every stored user and
// returns how many were created.
func (e *Engine) EnsureSelfFollows(ctx context.Context) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	var created int
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		ids, err := tx.Users().UserIDs(ctx)
		if err != nil {
			return err
		}
		created, err = e.graph(tx).EnsureAllSelfFollowed(ctx, ids)
		return err
	})
	if err != nil {
		return 0, e.persistErr(ctx, "ensure self follows", err)
	}

	e.logger.Info(ctx, "self follows ensured", "created", created)
	return created, nil
}
