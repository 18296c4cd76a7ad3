package web

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/stream"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Headers set by the streamer before the first chunk. They are removed if the
// stream fails before anything has been sent, so the error can be rendered.
var streamHeaders = []string{
	echo.HeaderLastModified,
	echo.HeaderContentType,
	echo.HeaderContentLength,
	echo.HeaderContentDisposition,
}

func getBlob(c echo.Context) error {
	container := c.Param("container")
	name, err := blobPath(c)
	if err != nil {
		return err
	}
	if name == "" || strings.HasSuffix(name, "/") {
		return listFolder(c, container, name)
	}

	streamer, err := stream.New(base.Config.ChunkSize)
	if err != nil {
		return err
	}
	sink := stream.NewResponseSink(c.Response())
	err = streamer.Stream(c.Request().Context(), base.Storage, sink, stream.Request{
		Container:   container,
		Blob:        name,
		Disposition: dispositionFromQuery(c),
	})
	if err == nil || stream.IsNotFound(err) {
		return nil
	}
	if sink.Committed() {
		// The response is truncated, the client will see a short body
		logrus.WithFields(logrus.Fields{
			"container": container,
			"blob":      name,
		}).Warnf("Stream interrupted: %s", err)
		return nil
	}
	for _, header := range streamHeaders {
		c.Response().Header().Del(header)
	}
	return err
}

func headBlob(c echo.Context) error {
	name, err := blobPath(c)
	if err != nil {
		return err
	}
	props, err := base.Storage.GetBlobProperties(c.Request().Context(), c.Param("container"), name)
	if err != nil {
		return err
	}
	h := c.Response().Header()
	h.Set(echo.HeaderLastModified, props.LastModified)
	h.Set(echo.HeaderContentType, props.ContentType)
	h.Set(echo.HeaderContentLength, strconv.FormatInt(props.ContentLength, 10))
	return c.NoContent(http.StatusOK)
}

func putBlob(c echo.Context) error {
	ctx := c.Request().Context()
	container := c.Param("container")
	name, err := blobPath(c)
	if err != nil {
		return err
	}
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No blob name in the path")
	}

	if source := c.Request().Header.Get(HeaderCopyFrom); source != "" {
		srcContainer, srcName, err := splitCopySource(source)
		if err != nil {
			return err
		}
		if err = base.Storage.CopyBlob(ctx, container, name, srcContainer, srcName); err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, blobResponse(container, name))
	}

	if strings.HasSuffix(name, "/") {
		// A folder is an empty object whose name ends with a slash
		err = base.Storage.PutBlobData(ctx, container, name, nil, "application/directory")
	} else {
		err = base.Storage.PutBlob(ctx, container, name, c.Request().Body,
			c.Request().Header.Get(echo.HeaderContentType))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, blobResponse(container, name))
}

func deleteBlob(c echo.Context) error {
	name, err := blobPath(c)
	if err != nil {
		return err
	}
	if err = base.Storage.DeleteBlob(c.Request().Context(), c.Param("container"), name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func blobResponse(container, name string) echo.Map {
	return echo.Map{
		"name": path.Base(name),
		"path": container + "/" + name,
	}
}
