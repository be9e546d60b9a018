package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return echo.New().NewContext(req, rec), rec
}

func TestStatusOK(t *testing.T) {
	req := require.New(t)
	c, rec := newContext()

	req.NoError(statusOK(c))
	req.Equal(http.StatusOK, rec.Code)
	var body map[string]string
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal(map[string]string{"status": "ok"}, body)
}

func TestRespondError(t *testing.T) {
	req := require.New(t)
	c, rec := newContext()

	req.NoError(unauthorized(c))
	req.Equal(http.StatusUnauthorized, rec.Code)
	var body ErrorResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal("unauthorized", body.Error.Code)
	req.Equal("missing uid", body.Error.Message)
}
