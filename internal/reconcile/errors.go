package reconcile

import "errors"

var (
	// ErrNotFound: the document or suggestion does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTenantMismatch: the caller's tenant does not own the suggestion.
	// Never silently rescoped.
	ErrTenantMismatch = errors.New("suggestion does not belong to tenant")

	// ErrAlreadyResolved: the suggestion or document was decided by a
	// concurrent operation. The caller must re-fetch state; it is not
	// retried automatically.
	ErrAlreadyResolved = errors.New("already resolved")
)
