package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/estate-backend/internal/service"
)

type UserHandler struct {
	msg *service.Messaging
}

func NewUserHandler(msg *service.Messaging) *UserHandler {
	return &UserHandler{msg: msg}
}

// GetParticipant returns how uid is displayed to the other side of a conversation.
func (h *UserHandler) GetParticipant(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid uid")
	}
	p, err := h.msg.Participant(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "not_found", "user not found")
		}
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to resolve user")
	}
	return c.JSON(http.StatusOK, p)
}
