package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/estate-backend/internal/model"
)

const streamHeartbeat = 25 * time.Second

type streamUpdate struct {
	list *model.ConversationList
	err  error
}

// Stream pushes the caller's conversation list as Server-Sent Events. The connection is the
// session: its realtime subscription lives exactly as long as the request.
func (h *ConversationHandler) Stream(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	ctx := c.Request().Context()

	// holds only the newest update; a slow client skips intermediate lists
	updates := make(chan streamUpdate, 1)
	inbox, err := h.msg.OpenSession(uid, func(list *model.ConversationList, err error) {
		u := streamUpdate{list: list, err: err}
		for {
			select {
			case updates <- u:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "internal_error", "failed to open stream")
	}
	defer inbox.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	list, err := inbox.FetchConversations(ctx)
	if err := writeUpdate(res, uid, streamUpdate{list: list, err: err}); err != nil {
		return nil
	}

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if err := writeUpdate(res, uid, u); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeUpdate(res *echo.Response, uid string, u streamUpdate) error {
	if u.err != nil {
		return writeEvent(res, "error", NewErrorResponse("fetch_failed", "failed to fetch conversations"))
	}
	return writeEvent(res, "conversations", listResponse(uid, u.list))
}

func writeEvent(res *echo.Response, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
