package remote

import (
	"errors"
	"fmt"
)

// statusError is a non-2xx HTTP response.
type statusError struct {
	code   int
	detail string
}

func (e *statusError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("remote service returned status %d", e.code)
	}
	return fmt.Sprintf("remote service returned status %d: %s", e.code, e.detail)
}

func asStatusError(err error, target **statusError) bool {
	return errors.As(err, target)
}
