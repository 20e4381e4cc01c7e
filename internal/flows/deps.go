package flows

import (
	"time"

	"github.com/nmheeir/Flask-Web-Development/models"
	"github.com/nmheeir/Flask-Web-Development/token"
)

// LifecycleErrors carries the engine's sentinel errors into the flows.
type LifecycleErrors struct {
	SubjectMismatch error
	UserNotFound    error
	DuplicateEmail  error
}

// LifecycleDeps is built once by the engine per operation.
type LifecycleDeps struct {
	Verify func(purpose token.Purpose, tok string, maxAge time.Duration) (token.Payload, error)
	Issue  func(purpose token.Purpose, subject int64, extra string) (string, error)

	// LookupUser returns (nil, nil) when no user has the id.
	LookupUser func(id int64) (*models.User, error)
	// EmailOwner returns the id of the account holding email, or 0.
	EmailOwner   func(email string) (int64, error)
	HashPassword func(password string) (string, error)

	Errors LifecycleErrors
}
