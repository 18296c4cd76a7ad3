// Package errshttp contains the errors returned by the driver. They carry the
// HTTP status code that should be sent when they reach the web layer.
package errshttp

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status code.
type Error struct {
	c     int
	e     string
	cause error
}

// NewError returns an error with the given status code and message.
func NewError(code int, format string, a ...interface{}) error {
	return &Error{
		c: code,
		e: fmt.Sprintf(format, a...),
	}
}

// Wrap returns an error with the given status code, whose message is prefix
// followed by the message of err. err is kept as the cause, so errors.Is and
// errors.As still work on it.
func Wrap(code int, prefix string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		c:     code,
		e:     prefix + err.Error(),
		cause: err,
	}
}

func (e *Error) Error() string {
	return e.e
}

// StatusCode returns the HTTP status code for this error.
func (e *Error) StatusCode() int {
	return e.c
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCoder is implemented by the errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// StatusCode returns the HTTP status code of err, or 500 if err does not
// carry one. The outermost status code wins.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// IsNotFound returns true if err carries a 404 status code.
func IsNotFound(err error) bool {
	return err != nil && StatusCode(err) == http.StatusNotFound
}
