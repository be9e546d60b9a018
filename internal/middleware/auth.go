package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/option"
)

var ErrMissingProjectID = errors.New("FIREBASE_PROJECT_ID is not set")

// UIDKey is the echo context key holding the verified caller's uid.
const UIDKey = "uid"

type AuthMiddleware struct {
	authClient *auth.Client
}

// NewAuthMiddleware verifies Firebase ID tokens. credentialsFile is optional; without it the
// application default credentials are used.
func NewAuthMiddleware(ctx context.Context, projectID, credentialsFile string) (*AuthMiddleware, error) {
	if projectID == "" {
		return nil, ErrMissingProjectID
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{authClient: client}, nil
}

// RequireAuth rejects requests without a valid Firebase ID token and stores the token's uid
// under UIDKey.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return reject(c, "unauthorized", "missing bearer token")
		}
		token, err := m.authClient.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			slog.Debug("id token rejected", "path", c.Path(), "error", err)
			return reject(c, "invalid_token", "invalid or expired token")
		}
		c.Set(UIDKey, token.UID)
		return next(c)
	}
}

func reject(c echo.Context, code, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}

func bearerToken(authz string) (string, bool) {
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}
