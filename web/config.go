package web

import (
	"net/http"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/cozy/cozy-cloudfiles/svcconfig"
	"github.com/labstack/echo/v4"
)

const maskedSecret = "**********"

func getConfigSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, svcconfig.Schema())
}

func getConfig(c echo.Context) error {
	cfg, err := base.ConfigStore.Get(c.Request().Context(), c.Param("service"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, maskSecrets(cfg))
}

func setConfig(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("service")

	var input svcconfig.Config
	if err := c.Bind(&input); err != nil {
		return errshttp.NewError(http.StatusBadRequest, "Invalid request body: %s", err)
	}
	// A masked secret sent back by a client is not a new secret
	if input.Password == maskedSecret {
		input.Password = ""
	}
	if input.APIKey == maskedSecret {
		input.APIKey = ""
	}

	merged, err := base.ConfigStore.Get(ctx, id)
	if err != nil {
		return err
	}
	merged.Merge(&input)
	if err = svcconfig.Validate(merged); err != nil {
		return errshttp.NewError(http.StatusBadRequest, "Invalid configuration: %s", err)
	}

	if err = base.ConfigStore.Set(ctx, id, &input); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, maskSecrets(merged))
}

func removeConfig(c echo.Context) error {
	if err := base.ConfigStore.Remove(c.Request().Context(), c.Param("service")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func maskSecrets(cfg *svcconfig.Config) *svcconfig.Config {
	masked := *cfg
	if masked.Password != "" {
		masked.Password = maskedSecret
	}
	if masked.APIKey != "" {
		masked.APIKey = maskedSecret
	}
	return &masked
}
