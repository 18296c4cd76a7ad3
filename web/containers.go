package web

import (
	"net/http"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/labstack/echo/v4"
)

type containerRequest struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

func listContainers(c echo.Context) error {
	includeProperties := boolQuery(c, "include_properties", false)
	list, err := base.Storage.ListContainers(c.Request().Context(), includeProperties)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"resource": list})
}

func createContainer(c echo.Context) error {
	var req containerRequest
	if err := c.Bind(&req); err != nil {
		return errshttp.NewError(http.StatusBadRequest, "Invalid request body: %s", err)
	}
	info, err := base.Storage.CreateContainer(c.Request().Context(), req.Name, req.Metadata)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

func getContainer(c echo.Context) error {
	return listFolder(c, c.Param("container"), "")
}

func deleteContainer(c echo.Context) error {
	force := boolQuery(c, "force", false)
	if err := base.Storage.DeleteContainer(c.Request().Context(), c.Param("container"), force); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// listFolder sends the properties of the container, or the content of a
// folder of the container.
func listFolder(c echo.Context, container, path string) error {
	ctx := c.Request().Context()
	if path == "" && boolQuery(c, "include_properties", false) {
		info, err := base.Storage.GetContainerProperties(ctx, container)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, info)
	}

	folder, err := base.Storage.GetFolder(ctx, container, path,
		boolQuery(c, "include_files", true),
		boolQuery(c, "include_folders", true),
		boolQuery(c, "full_tree", false))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, folder)
}
