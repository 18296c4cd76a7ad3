package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/cozy/cozy-cloudfiles/stream"
	"github.com/labstack/echo/v4"
)

// HeaderCopyFrom is the header of a PUT request that asks to copy another
// blob instead of uploading a body.
const HeaderCopyFrom = "X-Copy-From"

var errBadCopySource = errshttp.NewError(http.StatusBadRequest,
	"The "+HeaderCopyFrom+" header should be <container>/<blob>")

func boolQuery(c echo.Context, name string, defaultValue bool) bool {
	value := c.QueryParam(name)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// dispositionFromQuery returns the disposition asked by the client: an
// explicit disposition parameter, or attachment for download=true.
func dispositionFromQuery(c echo.Context) string {
	if disposition := c.QueryParam("disposition"); disposition != "" {
		return strings.ToLower(disposition)
	}
	if boolQuery(c, "download", false) {
		return "attachment"
	}
	return stream.DefaultDisposition
}

// blobPath returns the path of the blob in the container, from the wildcard
// of the route.
func blobPath(c echo.Context) (string, error) {
	p := c.Param("*")
	if c.Request().URL.RawPath == "" {
		return p, nil
	}
	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return "", errshttp.NewError(http.StatusBadRequest, "Invalid path: %s", err)
	}
	return unescaped, nil
}

// splitCopySource splits <container>/<blob> in its two parts.
func splitCopySource(source string) (string, string, error) {
	source = strings.TrimPrefix(source, "/")
	parts := strings.SplitN(source, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errBadCopySource
	}
	return parts[0], parts[1], nil
}
