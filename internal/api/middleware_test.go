package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(3, 100)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4"), "fourth request in the window should be refused")
	assert.True(t, l.Allow("5.6.7.8"), "other clients have their own window")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("1.2.3.4"), "a new window starts after a minute")
}

func TestRateLimiter_DisabledLetsEverythingThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, l := range []*RateLimiter{nil, NewRateLimiter(0, 10)} {
		router := gin.New()
		router.GET("/x", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		for i := 0; i < 5; i++ {
			wrec := httptest.NewRecorder()
			router.ServeHTTP(wrec, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, http.StatusNoContent, wrec.Code, "unexpected response status code")
		}
	}
}

func TestSafeNext(t *testing.T) {
	tcs := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "LocalPath", input: "/shares/3", expected: "/shares/3"},
		{name: "Empty", input: "", expected: ""},
		{name: "ProtocolRelative", input: "//evil.example", expected: ""},
		{name: "Backslash", input: "/\\evil.example", expected: ""},
		{name: "Absolute", input: "https://evil.example", expected: ""},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, safeNext(c.input))
		})
	}
}
