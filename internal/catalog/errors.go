package catalog

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Fetch failure stages.
const (
	OpRequest = "request"
	OpStatus  = "status"
	OpDecode  = "decode"
)

// ErrProductsUnavailable matches every *FetchError via errors.Is.
var ErrProductsUnavailable = errors.New("products unavailable")

// FetchError reports a failed or uninterpretable product-list fetch.
type FetchError struct {
	Op  string
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if e.URL != "" {
		return fmt.Sprintf("fetch products (%s %s): %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch products (%s): %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrProductsUnavailable }

// asFetchError normalizes anything a Source returns into a *FetchError so
// all waiters see one error type.
func asFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Op: OpRequest, Err: err}
}
