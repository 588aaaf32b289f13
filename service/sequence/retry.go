package sequence

import (
	"warehouse.GO/core/apperr"
)

const DefaultAttempts = 5

// WithRetry runs fn until it succeeds, fails with something other than a
// unique-key violation, or attempts are exhausted. fn must redo the whole
// unit of work (ID derivation included) on every call.
func WithRetry(attempts int, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var last error
	for i := 0; i < attempts; i++ {
		err := fn(i)
		if err == nil {
			return nil
		}
		if !apperr.IsDuplicate(err) {
			return err
		}
		last = err
	}
	return &apperr.Error{
		Kind:    apperr.Conflict,
		Message: "could not allocate a unique identifier, please retry",
		Err:     last,
	}
}
