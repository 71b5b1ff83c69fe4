package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/inkwell-backend/internal/i18n"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
	if err := i18n.Initialize("en"); err != nil {
		panic(err)
	}
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    userID.String(),
			"role":       c.GetString("role"),
			"lang":       utils.GetLangFromContext(c),
			"request_id": utils.GetRequestIDFromContext(c),
		})
	})
	return r
}

func serve(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(I18nMiddleware("en"), AuthRequired())
	userID := uuid.New()

	token, err := utils.GenerateJWT(userID, "reader", "reader", time.Hour)
	require.NoError(t, err)

	w := serve(r, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), `"role":"reader"`)

	w = serve(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = serve(r, http.Header{"Authorization": {"Token " + token}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.Header{"Authorization": {"Bearer not-a-jwt"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := utils.GenerateJWT(userID, "reader", "reader", -time.Minute)
	require.NoError(t, err)
	w = serve(r, http.Header{"Authorization": {"Bearer " + expired}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), i18n.T("en", i18n.KeyAuthTokenExpired))
}

func TestNegotiateLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"hi", "hi"},
		{"hi-IN,hi;q=0.9,en;q=0.8", "hi"},
		{"fr-FR,hi;q=0.5", "hi"},
		{"fr-FR,de", "en"},
		{"EN-gb", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, negotiateLanguage(tt.header, "en"), "header %q", tt.header)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID(), RequestLogger())

	w := serve(r, nil)
	generated := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), generated)

	w = serve(r, http.Header{"X-Request-Id": {"req-123"}})
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := newEngine(I18nMiddleware("en"), limiter.Middleware())

	assert.Equal(t, http.StatusOK, serve(r, nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, nil).Code)

	w := serve(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}
