package mw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/key", func(c *gin.Context) {
		calls++
		c.Header("X-Custom", "yes")
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/fail", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "down"})
	})

	first := serve(r, httptest.NewRequest(http.MethodGet, "/key", nil))
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))

	second := serve(r, httptest.NewRequest(http.MethodGet, "/key", nil))
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, "yes", second.Header().Get("X-Custom"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, 1, calls)

	bypass := httptest.NewRequest(http.MethodGet, "/key", nil)
	bypass.Header.Set("Cache-Control", "no-cache")
	assert.JSONEq(t, `{"calls":2}`, serve(r, bypass).Body.String())

	serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, 4, calls, "error responses are not cached")
}

func TestCache_SkipsNonGET(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.PUT("/key", func(c *gin.Context) {
		calls++
		c.Status(http.StatusNoContent)
	})

	serve(r, httptest.NewRequest(http.MethodPut, "/key", bytes.NewBufferString("{}")))
	serve(r, httptest.NewRequest(http.MethodPut, "/key", bytes.NewBufferString("{}")))
	assert.Equal(t, 2, calls)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) int {
		rq := httptest.NewRequest(http.MethodGet, "/", nil)
		rq.RemoteAddr = ip + ":1234"
		return serve(r, rq).Code
	}

	assert.Equal(t, http.StatusOK, req("10.0.0.1"))
	assert.Equal(t, http.StatusOK, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, req("10.0.0.1"))
	assert.Equal(t, http.StatusOK, req("10.0.0.2"), "limits are per client")
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, a, l.GetLimiter("10.0.0.2"))
	assert.Equal(t, 2, l.Len())
}

func TestAPIKey(t *testing.T) {
	r := gin.New()
	r.GET("/on", APIKey("s3cret"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/off", APIKey(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	withHeader := func(path, k, v string) int {
		rq := httptest.NewRequest(http.MethodGet, path, nil)
		if k != "" {
			rq.Header.Set(k, v)
		}
		return serve(r, rq).Code
	}

	assert.Equal(t, http.StatusOK, withHeader("/on", "Authorization", "Bearer s3cret"))
	assert.Equal(t, http.StatusOK, withHeader("/on", "X-API-Key", "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, withHeader("/on", "Authorization", "Bearer nope"))
	assert.Equal(t, http.StatusUnauthorized, withHeader("/on", "Authorization", "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, withHeader("/on", "", ""))
	assert.Equal(t, http.StatusServiceUnavailable, withHeader("/off", "Authorization", "Bearer "))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/missing/1", nil))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"path":"/missing/:id"`)
	assert.Contains(t, buf.String(), `"status":404`)
}
