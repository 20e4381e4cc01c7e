package rate

import "errors"

var (
	// ErrRateLimited is returned once a subject has used its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
