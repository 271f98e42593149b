package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsphere/environment-reservation/internal/utils"
)

func callWithAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", "u-1", "ADMIN", 15)
	require.NoError(t, err)

	rec, c := callWithAuth(t, JWTAuth("secret"), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", c.Get(CtxUserID))
	assert.Equal(t, "ADMIN", c.Get(CtxRole))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := callWithAuth(t, JWTAuth("secret"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", "u-1", "MEMBER", 15)
	require.NoError(t, err)

	rec, _ := callWithAuth(t, JWTAuth("secret"), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	run := func(role string, allowed ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != "" {
			c.Set(CtxRole, role)
		}
		h := RequireRole(allowed...)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		require.NoError(t, h(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run("ADMIN", "ADMIN"))
	assert.Equal(t, http.StatusOK, run("MEMBER", "MEMBER", "ADMIN"))
	assert.Equal(t, http.StatusForbidden, run("MEMBER", "ADMIN"))
	assert.Equal(t, http.StatusForbidden, run("", "ADMIN"))
}
