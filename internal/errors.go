package internal

import (
	"errors"
	"fmt"
)

// Registration and generation errors.
var (
	// ErrRouteNotFound is returned by the URL generator for unknown route names.
	ErrRouteNotFound = errors.New("anvil: route not found")

	// ErrDomainConflict is raised when a route declares a domain that
	// differs from the domain of an enclosing group.
	ErrDomainConflict = errors.New("anvil: route domain conflicts with group domain")

	// ErrMissingParam is returned by the URL generator when a required
	// route parameter is absent from the parameter map.
	ErrMissingParam = errors.New("anvil: missing route parameter")

	// ErrNilHandler is raised when a route is defined without a handler.
	ErrNilHandler = errors.New("anvil: route handler must not be nil")
)

// SyntaxError describes a malformed route path or domain pattern.
// Syntax errors are raised at definition time, never at request time.
type SyntaxError struct {
	// Pattern is the offending path or domain pattern.
	Pattern string

	// Reason explains what is wrong with the pattern.
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("anvil: invalid route pattern %q: %s", e.Pattern, e.Reason)
}

// IsSyntaxError reports whether err is a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
