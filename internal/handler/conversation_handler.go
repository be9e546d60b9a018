package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/estate-backend/internal/middleware"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/service"
)

type ConversationHandler struct {
	msg *service.Messaging
}

func NewConversationHandler(msg *service.Messaging) *ConversationHandler {
	return &ConversationHandler{msg: msg}
}

type ConversationListResponse struct {
	Conversations         []model.ConversationWithDetails `json:"conversations"`
	ArchivedConversations []model.ConversationWithDetails `json:"archivedConversations"`
	TotalUnread           int                             `json:"totalUnread"`
	CurrentUserID         string                          `json:"currentUserId"`
}

type CreateConversationRequest struct {
	PropertyID    uint64            `json:"propertyId"`
	SellerUID     string            `json:"sellerUid"`
	Content       string            `json:"content"`
	PropertyTitle string            `json:"propertyTitle"`
	MessageType   model.MessageType `json:"messageType"`
}

type CreateConversationResponse struct {
	Conversation *model.Conversation `json:"conversation"`
	Message      *model.Message      `json:"message"`
}

type SendMessageRequest struct {
	Content     string            `json:"content"`
	MessageType model.MessageType `json:"messageType"`
}

type DeleteMessagesRequest struct {
	IDs []uint64 `json:"ids"`
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get(middleware.UIDKey).(string)
	return uid
}

func conversationID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// mutationError maps pipeline errors to responses. Store failures get a generic message; details
// stay in the server log.
func mutationError(c echo.Context, err error, generic string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return respondError(c, http.StatusNotFound, "not_found", "conversation not found")
	case errors.Is(err, service.ErrForbidden):
		return respondError(c, http.StatusForbidden, "forbidden", "not a participant")
	case errors.Is(err, service.ErrInvalidInput):
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid request")
	}
	return respondError(c, http.StatusInternalServerError, "internal_error", generic)
}

func listResponse(uid string, list *model.ConversationList) ConversationListResponse {
	resp := ConversationListResponse{
		Conversations:         []model.ConversationWithDetails{},
		ArchivedConversations: []model.ConversationWithDetails{},
		CurrentUserID:         uid,
	}
	if list != nil {
		resp.Conversations = list.Active
		resp.ArchivedConversations = list.Archived
		resp.TotalUnread = list.TotalUnread
	}
	return resp
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.msg.Inbox(uid).FetchConversations(c.Request().Context())
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "fetch_failed", "failed to fetch conversations")
	}
	return c.JSON(http.StatusOK, listResponse(uid, list))
}

func (h *ConversationHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid json")
	}
	cv, msg, err := h.msg.Inbox(uid).CreateConversationAndSendMessage(c.Request().Context(),
		req.PropertyID, req.SellerUID, req.Content, req.PropertyTitle, req.MessageType)
	if err != nil {
		return mutationError(c, err, "failed to send message")
	}
	return c.JSON(http.StatusCreated, CreateConversationResponse{Conversation: cv, Message: msg})
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	convID, err := conversationID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid conversation id")
	}
	msgs, err := h.msg.Messages(c.Request().Context(), uid, convID)
	if err != nil {
		return mutationError(c, err, "failed to fetch messages")
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	convID, err := conversationID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid conversation id")
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid json")
	}
	msg, err := h.msg.Inbox(uid).SendMessage(c.Request().Context(), convID, req.Content, req.MessageType)
	if err != nil {
		return mutationError(c, err, "failed to send message")
	}
	return c.JSON(http.StatusCreated, msg)
}

// conversationAction runs a per-conversation mutation and replies with {"status":"ok"}.
func (h *ConversationHandler) conversationAction(c echo.Context, generic string, run func(in *service.Inbox, convID uint64) error) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	convID, err := conversationID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid conversation id")
	}
	if err := run(h.msg.Inbox(uid), convID); err != nil {
		return mutationError(c, err, generic)
	}
	return statusOK(c)
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	return h.conversationAction(c, "failed to mark read", func(in *service.Inbox, id uint64) error {
		return in.MarkAsRead(c.Request().Context(), id)
	})
}

func (h *ConversationHandler) MarkUnread(c echo.Context) error {
	return h.conversationAction(c, "failed to mark unread", func(in *service.Inbox, id uint64) error {
		return in.MarkAsUnread(c.Request().Context(), id)
	})
}

func (h *ConversationHandler) Archive(c echo.Context) error {
	return h.conversationAction(c, "failed to archive conversation", func(in *service.Inbox, id uint64) error {
		return in.ArchiveConversation(c.Request().Context(), id)
	})
}

func (h *ConversationHandler) Unarchive(c echo.Context) error {
	return h.conversationAction(c, "failed to unarchive conversation", func(in *service.Inbox, id uint64) error {
		return in.UnarchiveConversation(c.Request().Context(), id)
	})
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	return h.conversationAction(c, "failed to delete conversation", func(in *service.Inbox, id uint64) error {
		return in.DeleteConversation(c.Request().Context(), id)
	})
}

func (h *ConversationHandler) DeleteMessages(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req DeleteMessagesRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid json")
	}
	if err := h.msg.Inbox(uid).DeleteMessages(c.Request().Context(), req.IDs); err != nil {
		return mutationError(c, err, "failed to delete messages")
	}
	return statusOK(c)
}
