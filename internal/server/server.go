package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/estate-backend/internal/handler"
	"github.com/shinyyama/estate-backend/internal/service"
)

type Deps struct {
	Messaging     *service.Messaging
	Notifications service.NotificationService
	// RequireAuth sets "uid" on the echo context or rejects the request.
	RequireAuth echo.MiddlewareFunc
	SHA         string
	BuildTime   string
}

type Server struct {
	e *echo.Echo
}

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin,
	}))

	convHandler := handler.NewConversationHandler(d.Messaging)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)
	userHandler := handler.NewUserHandler(d.Messaging)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.SHA,
			"build_time": d.BuildTime,
		})
	})

	var mws []echo.MiddlewareFunc
	if d.RequireAuth != nil {
		mws = append(mws, d.RequireAuth)
	}
	api := e.Group("/api", mws...)
	api.GET("/conversations", convHandler.List)
	api.POST("/conversations", convHandler.Create)
	api.GET("/conversations/stream", convHandler.Stream)
	api.GET("/conversations/:id/messages", convHandler.ListMessages)
	api.POST("/conversations/:id/messages", convHandler.SendMessage)
	api.POST("/conversations/:id/read", convHandler.MarkRead)
	api.POST("/conversations/:id/unread", convHandler.MarkUnread)
	api.POST("/conversations/:id/archive", convHandler.Archive)
	api.POST("/conversations/:id/unarchive", convHandler.Unarchive)
	api.DELETE("/conversations/:id", convHandler.Delete)
	api.POST("/messages/delete", convHandler.DeleteMessages)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read", notificationHandler.MarkAllRead)
	api.GET("/participants/:uid", userHandler.GetParticipant)

	return &Server{e: e}
}

func allowOrigin(origin string) (bool, error) {
	low := strings.ToLower(origin)
	if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
		strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
		return true, nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, nil
	}
	if strings.HasSuffix(u.Hostname(), "vercel.app") {
		return true, nil
	}
	return false, nil
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
