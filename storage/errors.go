package storage

import (
	"errors"
	"net/http"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/ncw/swift/v2"
)

var errNoContainerName = errshttp.NewError(http.StatusBadRequest,
	"No name found for container in create request.")

// wrapErr translates an error of the SDK to an error with a status code. The
// message is the prefix followed by the message of the SDK.
func wrapErr(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var he *errshttp.Error
	if errors.As(err, &he) {
		return errshttp.Wrap(he.StatusCode(), prefix, err)
	}
	return errshttp.Wrap(statusCode(err), prefix, err)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, swift.ContainerNotFound), errors.Is(err, swift.ObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, swift.ContainerNotEmpty):
		return http.StatusConflict
	case errors.Is(err, swift.Forbidden):
		return http.StatusForbidden
	}
	var swiftErr *swift.Error
	if errors.As(err, &swiftErr) && swiftErr.StatusCode >= 400 && swiftErr.StatusCode < 500 {
		return swiftErr.StatusCode
	}
	return http.StatusInternalServerError
}
