package auth

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/consultlog/internal/config"
)

func newTestVerifier() *Verifier {
	return NewVerifier(config.AdminConfig{Username: "admin", Password: "secret", Realm: "Restricted"})
}

func basic(userpass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))
}

func TestVerify(t *testing.T) {
	v := newTestVerifier()

	assert.True(t, v.Verify("Basic YWRtaW46c2VjcmV0"))
	assert.False(t, v.Verify("Basic YWRtaW46d3Jvbmc="), "wrong password")
	assert.False(t, v.Verify(""), "absent header")
	assert.False(t, v.Verify("Bearer YWRtaW46c2VjcmV0"), "wrong scheme")
	assert.False(t, v.Verify("basic YWRtaW46c2VjcmV0"), "scheme is case sensitive")
	assert.False(t, v.Verify("Basic"), "missing payload")
	assert.False(t, v.Verify("Basic "), "empty payload")
	assert.False(t, v.Verify("Basic !!not-base64!!"), "malformed base64")
	assert.False(t, v.Verify(basic("adminsecret")), "no colon")
	assert.False(t, v.Verify(basic("Admin:secret")), "username is case sensitive")
}

func TestVerify_PasswordWithColons(t *testing.T) {
	v := NewVerifier(config.AdminConfig{Username: "ops", Password: "a:b:c"})
	assert.True(t, v.Verify(basic("ops:a:b:c")))
	assert.False(t, v.Verify(basic("ops:a:b")))
}

func TestCheck_WrapsErrUnauthorized(t *testing.T) {
	v := newTestVerifier()

	require.NoError(t, v.Check("Basic YWRtaW46c2VjcmV0"))
	for _, header := range []string{"", "Bearer x", "Basic !!", basic("nocolon"), "Basic YWRtaW46d3Jvbmc="} {
		err := v.Check(header)
		require.Error(t, err, header)
		assert.ErrorIs(t, err, ErrUnauthorized, header)
	}
}

func TestChallenge(t *testing.T) {
	assert.Equal(t, `Basic realm="Restricted"`, newTestVerifier().Challenge())
	assert.Equal(t, `Basic realm="Restricted"`, NewVerifier(config.AdminConfig{}).Challenge())
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	mw := Middleware(newTestVerifier(), zerolog.Nop())
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "in") }

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, mw(ok)(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `Basic realm="Restricted"`, rec.Header().Get(echo.HeaderWWWAuthenticate))
		assert.Equal(t, "Authentication required", rec.Body.String())
	})

	t.Run("logs the auth error without credentials", func(t *testing.T) {
		var logs bytes.Buffer
		logged := Middleware(newTestVerifier(), zerolog.New(&logs))
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic YWRtaW46d3Jvbmc=")
		rec := httptest.NewRecorder()
		require.NoError(t, logged(ok)(e.NewContext(req, rec)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, logs.String(), ErrUnauthorized.Error())
		assert.NotContains(t, logs.String(), "YWRtaW46d3Jvbmc=")
		assert.NotContains(t, logs.String(), "wrong")
	})

	t.Run("passes valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic YWRtaW46c2VjcmV0")
		rec := httptest.NewRecorder()
		require.NoError(t, mw(ok)(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "in", rec.Body.String())
	})
}
