package services

import "github.com/cppla/sharelink/utils"

// Client facing errors. Resource lookups share one NotFound so callers cannot tell a missing,
// foreign, deleted or expired resource apart.
var (
	ErrResourceNotFound   = utils.NotFound(40401, "Resource not found")
	ErrTokenConflict      = utils.Conflict(40901, "Access token already in use")
	ErrEmailTaken         = utils.Conflict(40902, "User already exists")
	ErrContentRequired    = utils.BadRequest(40010, "Either a file or resourceUrl is required")
	ErrInvalidCredentials = utils.Unauthorized(40106, "Invalid credentials")
	ErrNotAuthorized      = utils.Unauthorized(40101, "Not authorized to access this route")
)
