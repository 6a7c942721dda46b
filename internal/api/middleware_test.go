package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Haru-Log/harulog-server-ops/internal/database"
	"github.com/Haru-Log/harulog-server-ops/internal/fabric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, &fabric.MockFabric{})

	var gotUserId int
	var gotOk bool
	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotUserId, gotOk = UserId(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid cookie passes the user id through", func(t *testing.T) {
		token, err := app.createJwtForSession(42, time.Hour)
		require.NoError(t, err, "expected token creation to succeed")

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))
		rr := httptest.NewRecorder()

		handler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected request to be allowed")
		assert.True(t, gotOk, "expected user id in the request context")
		assert.Equal(t, 42, gotUserId, "expected user id from the token")
	})

	t.Run("missing cookie is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		rr := httptest.NewRecorder()

		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected unauthorized without a cookie")
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(createJwtCookie("bogus", time.Hour))
		rr := httptest.NewRecorder()

		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected unauthorized for a bad token")
	})
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, &fabric.MockFabric{})

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected panic to become a 500")
	assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection to be closed")
}
