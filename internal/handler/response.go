package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, NewErrorResponse(code, message))
}

func unauthorized(c echo.Context) error {
	return respondError(c, http.StatusUnauthorized, "unauthorized", "missing uid")
}

func statusOK(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
