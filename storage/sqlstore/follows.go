package sqlstore

import (
	"context"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/models"
)

type followRepo struct {
	h handle
}

func (r *followRepo) InsertEdge(ctx context.Context, edge models.FollowEdge) (bool, error) {
	res, err := r.h.exec(ctx,
		`INSERT INTO follows (follower_id, followed_id, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT (follower_id, followed_id) DO NOTHING`,
		edge.FollowerID, edge.FollowedID, edge.Timestamp.UTC(),
	)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

func (r *followRepo) DeleteEdge(ctx context.Context, followerID, followedID int64) (bool, error) {
	res, err := r.h.exec(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followed_id = ?`,
		followerID, followedID,
	)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

func (r *followRepo) EdgeExists(ctx context.Context, followerID, followedID int64) (bool, error) {
	var n int
	err := r.h.queryRow(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followed_id = ?`,
		followerID, followedID,
	).Scan(&n)
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

func (r *followRepo) FeedPage(ctx context.Context, userID int64, after *follow.Cursor, limit int) ([]models.Post, error) {
	query := `SELECT p.id, p.body, p.body_html, p.timestamp, p.author_id
		FROM posts p
		JOIN follows f ON f.followed_id = p.author_id
		WHERE f.follower_id = ?`
	args := []any{userID}

	if after != nil {
		query += ` AND (p.timestamp < ? OR (p.timestamp = ? AND p.id < ?))`
		ts := after.Timestamp.UTC()
		args = append(args, ts, ts, after.ID)
	}
	query += ` ORDER BY p.timestamp DESC, p.id DESC LIMIT ?`
	args = append(args, limitOf(limit))

	rows, err := r.h.query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPosts(rows)
}

func (r *followRepo) listEdges(ctx context.Context, column string, userID int64, page follow.Page) ([]models.FollowEdge, error) {
	rows, err := r.h.query(ctx,
		`SELECT follower_id, followed_id, timestamp FROM follows
		 WHERE `+column+` = ?
		 ORDER BY timestamp DESC, follower_id, followed_id
		 LIMIT ? OFFSET ?`,
		userID, limitOf(page.Limit), page.Offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var edges []models.FollowEdge
	for rows.Next() {
		var e models.FollowEdge
		if err := rows.Scan(&e.FollowerID, &e.FollowedID, &e.Timestamp); err != nil {
			return nil, mapErr(err)
		}
		e.Timestamp = e.Timestamp.UTC()
		edges = append(edges, e)
	}
	return edges, mapErr(rows.Err())
}

func (r *followRepo) Followers(ctx context.Context, userID int64, page follow.Page) ([]models.FollowEdge, error) {
	return r.listEdges(ctx, "followed_id", userID, page)
}

func (r *followRepo) Following(ctx context.Context, userID int64, page follow.Page) ([]models.FollowEdge, error) {
	return r.listEdges(ctx, "follower_id", userID, page)
}

func (r *followRepo) count(ctx context.Context, column string, userID int64) (int, error) {
	var n int
	if err := r.h.queryRow(ctx, `SELECT COUNT(*) FROM follows WHERE `+column+` = ?`, userID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *followRepo) CountFollowers(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, "followed_id", userID)
}

func (r *followRepo) CountFollowing(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, "follower_id", userID)
}
