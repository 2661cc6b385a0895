package models

import "errors"

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound      = errors.New("resource not found") // general not found
	ErrStoryNotFound = errors.New("story not found")
	ErrUserNotFound  = errors.New("user not found")

	// Authorization errors
	ErrForbidden    = errors.New("forbidden")        // authenticated, but lacks permission
	ErrStoryPrivate = errors.New("story is private") // private story, requester is not the author
	ErrUnauthorized = errors.New("unauthorized")     // authentication required or failed

	// User errors
	ErrUserAlreadyExists = errors.New("user with this username already exists")
	ErrNotFollowing      = errors.New("not following this user")

	// Generation pipeline errors
	ErrContentInvalid      = errors.New("generated content failed validation") // terminal after self-heal attempts
	ErrMaxRetriesExceeded  = errors.New("maximum retries exceeded")
	ErrCardinalityMismatch = errors.New("generated asset count does not match scene count")

	// General request/server errors
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)
