package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Local(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(nil, 2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		rq := httptest.NewRequest(http.MethodGet, "/", nil)
		rq.RemoteAddr = ip + ":1234"
		return rq
	}
	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.1")).Code)
	w := serve(r, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.2")).Code, "otra IP tiene su propia ventana")
}

func TestVentanaLocal_Reinicia(t *testing.T) {
	v := newVentanaLocal()
	n, _, err := v.hit(context.Background(), "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, _, _ = v.hit(context.Background(), "k", 10*time.Millisecond)
	assert.EqualValues(t, 2, n)

	time.Sleep(15 * time.Millisecond)
	n, _, _ = v.hit(context.Background(), "k", 10*time.Millisecond)
	assert.EqualValues(t, 1, n)
}

func TestJWTAuthYRoles(t *testing.T) {
	const secret = "s3cr3t"
	r := gin.New()
	r.GET("/", JWTAuth(secret), RequireRole(RolSupervisor), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).UserID)
	})

	firmar := func(rol, key string, exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
			UserID: "u-1", Rol: rol,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		}).SignedString([]byte(key))
		require.NoError(t, err)
		return tok
	}
	get := func(tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		return serve(r, req)
	}

	hora := time.Now().Add(time.Hour)
	w := get(firmar(RolSupervisor, secret, hora))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, get(firmar(RolCajero, secret, hora)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(firmar(RolSupervisor, "otra", hora)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(firmar(RolSupervisor, secret, time.Now().Add(-time.Minute))).Code)
	assert.Equal(t, http.StatusUnauthorized, get("").Code)
}

func TestErrorHandler_NoExponeDetalles(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/", func(c *gin.Context) { _ = c.Error(errors.New("pq: relation \"facturas\" does not exist")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "facturas")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestErrorHandler_ErrorDeDominio(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) { _ = c.Error(apierror.Conflict("la sede 1 ya tiene una caja abierta")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "caja abierta")
}
