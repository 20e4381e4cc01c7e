package flasky

import (
	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/permission"
)

// Identity is whoever is acting: a stored member or an anonymous guest.
type Identity interface {
	Can(perm permission.Permission) bool
	IsAdministrator() bool
	IsAuthenticated() bool
}

// Member is an authenticated user together with its role.
type Member struct {
	User *models.User
	Role permission.Role
}

// Can reports whether the member's role grants every bit of perm.
func (m Member) Can(perm permission.Permission) bool {
	return m.User != nil && m.Role.HasPermission(perm)
}

func (m Member) IsAdministrator() bool {
	return m.Can(permission.Admin)
}

func (m Member) IsAuthenticated() bool {
	return m.User != nil
}

// UserID returns the member's id, or 0 for an empty Member.
func (m Member) UserID() int64 {
	if m.User == nil {
		return 0
	}
	return m.User.ID
}

// Guest is the anonymous identity. It is denied everything.
type Guest struct{}

func (Guest) Can(permission.Permission) bool { return false }
func (Guest) IsAdministrator() bool          { return false }
func (Guest) IsAuthenticated() bool          { return false }

var (
	_ Identity = Member{}
	_ Identity = Guest{}
)
