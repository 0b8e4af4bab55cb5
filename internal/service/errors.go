package service

import "errors"

// Sentinel errors surfaced to the HTTP layer. Handlers map these onto
// status codes; anything else is treated as an internal failure.
var (
	// Not found.
	ErrModuleNotFound     = errors.New("module not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCriteriaNotFound   = errors.New("scoring criteria not found")
	ErrItemNotFound       = errors.New("scoring item not found")
	ErrRecordNotFound     = errors.New("scoring record not found")
	ErrAttachmentNotFound = errors.New("attachment not found")

	// Access denied.
	ErrAccessDenied = errors.New("access denied")

	// Invalid state.
	ErrInvalidStatus       = errors.New("invalid module status")
	ErrInvalidRole         = errors.New("invalid role")
	ErrModuleNotScoring    = errors.New("module is not in scoring status")
	ErrScoringFrozen       = errors.New("scoring has been finished and cannot be modified")
	ErrModuleNotInProgress = errors.New("module is not in progress")
	ErrScoreOutOfRange     = errors.New("score exceeds the item's maximum")
	ErrInvalidImport       = errors.New("invalid criteria import document")

	// Conflicts.
	ErrEvaluationInProgress = errors.New("evaluation already in progress")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrCriteriaExists       = errors.New("scoring criteria already exists")

	// Auth.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}
