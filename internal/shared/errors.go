package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing or invalid bearer credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid credential with an insufficient role.
	ErrForbidden = errors.New("forbidden")
	// ErrOperationFailed indicates an upstream storage or identity failure.
	ErrOperationFailed = errors.New("operation failed")
)

// UserSafeMessage maps internal errors to text safe to show to callers.
// Storage and identity-provider detail never leaves the service.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "Email or password is not valid"
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in again"
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action"
	default:
		return "The operation could not be completed"
	}
}
