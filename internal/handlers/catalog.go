package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/themes"
)

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Products lists the printable catalog.
func Products(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"products": catalog.All()})
}

func Themes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"themes": themes.All()})
}
