package sqlstore

import (
	"context"
	"database/sql"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

type postRepo struct {
	h handle
}

const postColumns = `id, body, body_html, timestamp, author_id`

func scanPost(row scanner) (*models.Post, error) {
	p := &models.Post{}
	if err := row.Scan(&p.ID, &p.Body, &p.BodyHTML, &p.Timestamp, &p.AuthorID); err != nil {
		return nil, mapErr(err)
	}
	p.Timestamp = p.Timestamp.UTC()
	return p, nil
}

func collectPosts(rows *sql.Rows) ([]models.Post, error) {
	defer rows.Close()
	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, mapErr(rows.Err())
}

func (r *postRepo) CreatePost(ctx context.Context, p *models.Post) error {
	err := r.h.queryRow(ctx,
		`INSERT INTO posts (body, body_html, timestamp, author_id) VALUES (?, ?, ?, ?) RETURNING id`,
		p.Body, p.BodyHTML, p.Timestamp.UTC(), p.AuthorID,
	).Scan(&p.ID)
	return mapErr(err)
}

func (r *postRepo) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	return scanPost(r.h.queryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
}

func (r *postRepo) UpdatePost(ctx context.Context, p *models.Post) error {
	res, err := r.h.exec(ctx,
		`UPDATE posts SET body = ?, body_html = ? WHERE id = ?`,
		p.Body, p.BodyHTML, p.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *postRepo) PostsByAuthor(ctx context.Context, authorID int64, page storage.Page) ([]models.Post, error) {
	rows, err := r.h.query(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		authorID, limitOf(page.Limit), page.Offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPosts(rows)
}

const commentColumns = `id, body, body_html, timestamp, disabled, author_id, post_id`

func scanComment(row scanner) (*models.Comment, error) {
	c := &models.Comment{}
	if err := row.Scan(&c.ID, &c.Body, &c.BodyHTML, &c.Timestamp, &c.Disabled, &c.AuthorID, &c.PostID); err != nil {
		return nil, mapErr(err)
	}
	c.Timestamp = c.Timestamp.UTC()
	return c, nil
}

func (r *postRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	err := r.h.queryRow(ctx,
		`INSERT INTO comments (body, body_html, timestamp, disabled, author_id, post_id)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		c.Body, c.BodyHTML, c.Timestamp.UTC(), c.Disabled, c.AuthorID, c.PostID,
	).Scan(&c.ID)
	return mapErr(err)
}

func (r *postRepo) CommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	return scanComment(r.h.queryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
}

func (r *postRepo) UpdateComment(ctx context.Context, c *models.Comment) error {
	res, err := r.h.exec(ctx,
		`UPDATE comments SET body = ?, body_html = ?, disabled = ? WHERE id = ?`,
		c.Body, c.BodyHTML, c.Disabled, c.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *postRepo) CommentsForPost(ctx context.Context, postID int64, page storage.Page) ([]models.Comment, error) {
	rows, err := r.h.query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ?
		 ORDER BY timestamp ASC, id ASC LIMIT ? OFFSET ?`,
		postID, limitOf(page.Limit), page.Offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, mapErr(rows.Err())
}
