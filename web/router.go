// Package web is the HTTP surface of the driver: a remote file system over the
// containers and blobs of the object store, and the configuration of the
// service.
package web

import (
	"net/http"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Router returns the echo router of the driver. It uses the services of the
// base package, which must have been configured before.
func Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.LoggerWithConfig(middleware.DefaultLoggerConfig))
	e.Use(middleware.Recover())

	cfg := e.Group("/_config")
	cfg.GET("/_schema", getConfigSchema)
	cfg.GET("/:service", getConfig)
	cfg.PUT("/:service", setConfig)
	cfg.DELETE("/:service", removeConfig)

	e.GET("/", listContainers)
	e.POST("/", createContainer)

	e.GET("/:container", getContainer)
	e.DELETE("/:container", deleteContainer)

	e.GET("/:container/*", getBlob)
	e.HEAD("/:container/*", headBlob)
	e.PUT("/:container/*", putBlob)
	e.DELETE("/:container/*", deleteBlob)

	return e
}

func httpErrorHandler(err error, c echo.Context) {
	var (
		code = http.StatusInternalServerError
		msg  string
	)

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		code = errshttp.StatusCode(err)
		msg = err.Error()
	}

	if code >= 500 {
		logrus.WithField("uri", c.Request().RequestURI).Errorf("Error: %s", err)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
	} else {
		_ = c.JSON(code, echo.Map{"error": msg})
	}
}
