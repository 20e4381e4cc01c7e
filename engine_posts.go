package flasky

import (
	"context"
	"errors"
	"strings"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
	"github.com/nmheeir/Flask-Web-Development/render"
	"github.com/nmheeir/Flask-Web-Development/storage"
)

func (e *Engine) loadPost(ctx context.Context, tx storage.Tx, id int64) (*models.Post, error) {
	post, err := tx.Posts().PostByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return post, err
}

// CreatePost stores a post by authorID, which needs the WRITE permission.
func (e *Engine) CreatePost(ctx context.Context, authorID int64, body string) (*models.Post, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	post := &models.Post{
		Body:     body,
		BodyHTML: render.Sanitized(body),
		AuthorID: authorID,
	}
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.requireMember(ctx, tx, authorID, permission.Write, "create_post"); err != nil {
			return err
		}
		post.Timestamp = e.timestamp()
		return tx.Posts().CreatePost(ctx, post)
	})
	if err != nil {
		return nil, e.persistErr(ctx, "create post", err)
	}

	e.metricInc(MetricPostCreated)
	e.emitAudit(ctx, auditEventPostCreated, true, authorID, nil, func() map[string]string {
		return map[string]string{"post_id": subjectKey(post.ID)}
	})
	return post, nil
}

// EditPost replaces the body of postID. Only the author or an
// administrator may edit.
func (e *Engine) EditPost(ctx context.Context, editorID, postID int64, body string) (*models.Post, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	var post *models.Post
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		editor, err := e.loadUser(ctx, tx.Users(), editorID)
		if err != nil {
			return err
		}
		m, err := e.member(ctx, tx, editor)
		if err != nil {
			return err
		}
		if post, err = e.loadPost(ctx, tx, postID); err != nil {
			return err
		}
		if post.AuthorID != editorID && !m.IsAdministrator() {
			e.emitDenied(ctx, editorID, "edit_post")
			return ErrPermissionDenied
		}

		post.Body = body
		post.BodyHTML = render.Sanitized(body)
		return tx.Posts().UpdatePost(ctx, post)
	})
	if err != nil {
		return nil, e.persistErr(ctx, "edit post", err)
	}

	e.metricInc(MetricPostEdited)
	return post, nil
}

// Post loads one post.
func (e *Engine) Post(ctx context.Context, id int64) (*models.Post, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	post, err := e.loadPost(ctx, e.store, id)
	if err != nil {
		return nil, e.persistErr(ctx, "load post", err)
	}
	return post, nil
}

// PostsByAuthor lists authorID's posts, newest first.
func (e *Engine) PostsByAuthor(ctx context.Context, authorID int64, page storage.Page) ([]models.Post, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = e.config.Feed.PageSize
	}
	posts, err := e.store.Posts().PostsByAuthor(ctx, authorID, page)
	if err != nil {
		return nil, e.persistErr(ctx, "posts by author", err)
	}
	return posts, nil
}

// AddComment stores a comment by authorID on postID. The author needs the
// COMMENT permission.
func (e *Engine) AddComment(ctx context.Context, authorID, postID int64, body string) (*models.Comment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	comment := &models.Comment{
		Body:     body,
		BodyHTML: render.Sanitized(body),
		AuthorID: authorID,
		PostID:   postID,
	}
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.requireMember(ctx, tx, authorID, permission.Comment, "add_comment"); err != nil {
			return err
		}
		if _, err := e.loadPost(ctx, tx, postID); err != nil {
			return err
		}
		comment.Timestamp = e.timestamp()
		return tx.Posts().CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, e.persistErr(ctx, "add comment", err)
	}

	e.metricInc(MetricCommentCreated)
	return comment, nil
}

// SetCommentDisabled hides or restores a comment. The moderator needs the
// MODERATE permission.
func (e *Engine) SetCommentDisabled(ctx context.Context, moderatorID, commentID int64, disabled bool) (*models.Comment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var comment *models.Comment
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := e.requireMember(ctx, tx, moderatorID, permission.Moderate, "moderate_comment"); err != nil {
			return err
		}
		var err error
		comment, err = tx.Posts().CommentByID(ctx, commentID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		comment.Disabled = disabled
		return tx.Posts().UpdateComment(ctx, comment)
	})
	if err != nil {
		return nil, e.persistErr(ctx, "moderate comment", err)
	}

	e.metricInc(MetricCommentModerated)
	e.emitAudit(ctx, auditEventCommentModerated, true, moderatorID, nil, func() map[string]string {
		state := "enabled"
		if disabled {
			state = "disabled"
		}
		return map[string]string{"comment_id": subjectKey(commentID), "state": state}
	})
	return comment, nil
}

// Comments lists the comments of postID, oldest first. Disabled comments
// are included; callers decide how to show them.
func (e *Engine) Comments(ctx context.Context, postID int64, page storage.Page) ([]models.Comment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = e.config.Feed.PageSize
	}
	comments, err := e.store.Posts().CommentsForPost(ctx, postID, page)
	if err != nil {
		return nil, e.persistErr(ctx, "comments", err)
	}
	return comments, nil
}
