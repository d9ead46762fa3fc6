package apperr

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrStoreUnavailable classifies any failure of a backing store (database,
// redis, state file). Callers abort the request; nothing is retried.
var ErrStoreUnavailable = errors.New("store unavailable")

const CodeStoreUnavailable = "STORE_UNAVAILABLE"

// StoreUnavailable wraps err so that errors.Is(err, ErrStoreUnavailable)
// holds and the oops code/context survive for logging.
func StoreUnavailable(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
}

// IsStoreUnavailable reports whether err came from a store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
