package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Service: "Flex Vault API"})
}
