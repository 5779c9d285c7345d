package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 2, time.Minute)
	defer rl.StopCleanup()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return serve(router, req).Code
	}

	assert.Equal(t, http.StatusOK, request("1.1.1.1"))
	assert.Equal(t, http.StatusOK, request("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("1.1.1.1"))

	// 不同客户端互不影响
	assert.Equal(t, http.StatusOK, request("2.2.2.2"))
}

func TestIPRateLimiter_Evict(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, time.Minute)
	defer rl.StopCleanup()

	now := time.Now()
	assert.True(t, rl.allow("1.1.1.1", now))
	assert.False(t, rl.allow("1.1.1.1", now))

	rl.evict(now.Add(2 * time.Minute))
	_, ok := rl.limiterMap.Load("1.1.1.1")
	assert.False(t, ok)

	rl.StopCleanup()
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	rl := NewIPRateLimiter(0, 0, time.Minute)
	defer rl.StopCleanup()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestConcurrencyLimiter(t *testing.T) {
	cl := NewConcurrencyLimiter(1)

	entered := make(chan struct{})
	release := make(chan struct{})

	router := gin.New()
	router.Use(cl.Middleware())
	router.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	router.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	var slowCode int
	go func() {
		defer wg.Done()
		slowCode = serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code
	}()

	<-entered
	w := serve(router, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Server is busy")

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, slowCode)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestConcurrencyLimiter_Block(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	require.True(t, cl.sem.TryAcquire(1))

	router := gin.New()
	router.Use(cl.MiddlewareWithBlock(20 * time.Millisecond))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusServiceUnavailable, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	cl.sem.Release(1)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"kept", "abc-123_DEF", true},
		{"invalid characters", "abc\n123", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := serve(router, req)

			id := w.Header().Get(RequestIDHeader)
			assert.NotEmpty(t, id)
			assert.Equal(t, id, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.incoming, id)
			} else {
				assert.NotEqual(t, tt.incoming, id)
				assert.Len(t, id, 36)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	defer ResetMetrics()

	router := gin.New()
	router.Use(Metrics())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/ok", "/bad", "/fail"} {
		serve(router, httptest.NewRequest(http.MethodGet, path, nil))
	}

	m := GetMetrics()
	assert.Equal(t, int64(4), m["request_count"])
	assert.Equal(t, int64(1), m["client_errors"])
	assert.Equal(t, int64(1), m["server_errors"])
	assert.Equal(t, int64(0), m["in_flight"])
}

func TestMaxBytesReader(t *testing.T) {
	router := gin.New()
	router.Use(MaxBytesReader(10))
	router.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(router, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 11)))).Code)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Logger(zap.NewNop()), Recovery(zap.NewNop()))
	router.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}
