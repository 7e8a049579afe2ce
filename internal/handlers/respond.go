package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
)

type errorResponse struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

func respondError(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), errorResponse{
		Message:  err.Error(),
		Category: apperr.Category(err),
	})
}
