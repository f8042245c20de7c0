package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/cppla/sharelink/config"
	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/services"
	"github.com/cppla/sharelink/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Use(config.AppConfig{JWTSecret: "test-secret"})
	os.Exit(m.Run())
}

type errorBody struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandlerClassified(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(ctx *gin.Context) {
		_ = ctx.Error(utils.NotFound(40401, "Resource not found"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, 40401, body.Code)
	assert.Equal(t, "Resource not found", body.Message)
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	utils.SetLogger(zap.New(core))
	t.Cleanup(func() { utils.SetLogger(zap.NewNop()) })

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(ctx *gin.Context) {
		_ = ctx.Error(errors.New("pq: password authentication failed for user admin"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "password")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "password authentication failed")
}

func TestErrorHandlerLeavesSuccessAlone(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, "fine") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(4))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	// burst is perMinute/2
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLimiterSetForgetsIdleClients(t *testing.T) {
	set := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1}
	now := time.Now()

	assert.True(t, set.allow("a", now))
	assert.Len(t, set.limiters, 1)

	assert.True(t, set.allow("b", now.Add(limiterIdle+time.Second)))
	assert.Len(t, set.limiters, 1)
}

func TestLimiterSetSweepsAtMostOncePerIdleWindow(t *testing.T) {
	set := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1}
	now := time.Now()

	set.allow("a", now)
	set.limiters["stale"] = &rateLimiter{limiter: rate.NewLimiter(1, 1), expires: now.Add(-time.Minute)}

	// within the window the map is not scanned again
	set.allow("b", now.Add(time.Minute))
	assert.Contains(t, set.limiters, "stale")

	set.allow("c", now.Add(limiterIdle+time.Second))
	assert.NotContains(t, set.limiters, "stale")
	assert.Contains(t, set.limiters, "b")
	assert.Contains(t, set.limiters, "c")
}

func newAuthService(t *testing.T) *services.AuthService {
	t.Helper()
	db, err := config.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, &models.User{}, &models.Resource{}))
	return services.NewAuthService(db, time.Hour)
}

func TestAuthRequired(t *testing.T) {
	auth := newAuthService(t)
	sess, err := auth.Register(context.Background(), "A", "a@example.com", "password1")
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", AuthRequired(auth), func(ctx *gin.Context) {
		user, ok := CurrentUser(ctx)
		require.True(t, ok)
		claims, token := CurrentClaims(ctx)
		require.NotNil(t, claims)
		assert.Equal(t, sess.Token, token)
		ctx.String(http.StatusOK, user.Email)
	})

	tests := []struct {
		name   string
		header string
		status int
		code   int
	}{
		{"missing", "", http.StatusUnauthorized, 40101},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, 40102},
		{"empty bearer", "Bearer  ", http.StatusUnauthorized, 40103},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, 40101},
		{"valid", "Bearer " + sess.Token, http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != 0 {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			} else {
				assert.Equal(t, "a@example.com", w.Body.String())
			}
		})
	}
}
