// academy/utils/errors.go
package utils

import "errors"

var ErrSessionNotInContext = errors.New("session not found in request context")
