// Package storage declares the persistence contracts of flasky. The engine
// depends only on these interfaces; storage/sqlstore implements them.
//
// Transactions are owned by the Manager: every handle obtained inside
// WithTx shares one transaction, which commits when the callback returns nil
// and rolls back otherwise.
package storage

import (
	"context"
	"errors"

	"github.com/nmheeir/Flask-Web-Development/follow"
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("unique constraint violated")
)

// Page selects a slice of a listing.
type Page struct {
	Offset int
	Limit  int
}

// Users persists accounts. Emails are compared in their normalized form.
type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	// DeleteUser removes the user and everything it owns: follow edges in
	// both directions, posts, comments and log rows.
	DeleteUser(ctx context.Context, id int64) error
	UserIDs(ctx context.Context) ([]int64, error)
}

// Posts persists posts and comments.
type Posts interface {
	CreatePost(ctx context.Context, p *models.Post) error
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	UpdatePost(ctx context.Context, p *models.Post) error
	PostsByAuthor(ctx context.Context, authorID int64, page Page) ([]models.Post, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	CommentByID(ctx context.Context, id int64) (*models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	CommentsForPost(ctx context.Context, postID int64, page Page) ([]models.Comment, error)
}

// Logs persists the account event log.
type Logs interface {
	CreateUserLog(ctx context.Context, l *models.UserLog) error
	UserLogs(ctx context.Context, userID int64, page Page) ([]models.UserLog, error)
}

// Tx groups the stores bound to one connection or transaction.
type Tx interface {
	Users() Users
	Roles() permission.RoleStore
	Follows() follow.Store
	Posts() Posts
	Logs() Logs
}

// Manager owns the database handle. Its own Tx methods run outside any
// transaction.
type Manager interface {
	Tx
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Migrate(ctx context.Context) error
	Close() error
}
