// Package models holds the persisted records shared by the engine and the
// storage adapters.
package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// User is an account. ID is zero until the user has been stored.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Confirmed    bool
	RoleID       int64
	Name         string
	Location     string
	AboutMe      string
	MemberSince  time.Time
	LastSeen     time.Time
	AvatarHash   string
}

// Persisted reports whether the user has been assigned a storage ID.
func (u *User) Persisted() bool {
	return u != nil && u.ID != 0
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AvatarHash returns the Gravatar hash of email: md5 of the lower-cased address.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

// GravatarURL builds the avatar URL for u. Empty def and rating fall back to
// "identicon" and "g".
func (u *User) GravatarURL(size int, def, rating string) string {
	hash := u.AvatarHash
	if hash == "" {
		hash = AvatarHash(u.Email)
	}
	if size <= 0 {
		size = 100
	}
	if def == "" {
		def = "identicon"
	}
	if rating == "" {
		rating = "g"
	}
	q := url.Values{}
	q.Set("s", fmt.Sprint(size))
	q.Set("d", def)
	q.Set("r", rating)
	return "https://secure.gravatar.com/avatar/" + hash + "?" + q.Encode()
}

// FollowEdge is a directed follow relation. FollowerID == FollowedID is a
// self-follow.
type FollowEdge struct {
	FollowerID int64
	FollowedID int64
	Timestamp  time.Time
}

// Post is a blog post. BodyHTML is derived from Body by the renderer.
type Post struct {
	ID        int64
	Body      string
	BodyHTML  string
	Timestamp time.Time
	AuthorID  int64
}

// Comment belongs to a post. Disabled comments are hidden by moderators.
type Comment struct {
	ID        int64
	Body      string
	BodyHTML  string
	Timestamp time.Time
	Disabled  bool
	AuthorID  int64
	PostID    int64
}

// Account event actions recorded in the user log.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// UserLog is one authentication transition of a user.
type UserLog struct {
	ID        int64
	UserID    int64
	Action    string
	Timestamp time.Time
	IP        string
}
