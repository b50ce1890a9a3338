package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/services"
)

const (
	sessionUserKey = "user_id"
	contextUserKey = "user"
	loginPath      = "/auth/login"
)

// RobotsTag asks crawlers not to index or follow any response.
func RobotsTag() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Robots-Tag", "noindex, nofollow")
		c.Next()
	}
}

// RequestLogger routes gin's access log through logrus. 4xx responses are
// logged at debug level; a missing share is normal traffic.
func RequestLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		entry := log.WithFields(log.Fields{
			"status":   param.StatusCode,
			"latency":  param.Latency,
			"clientIP": param.ClientIP,
			"method":   param.Method,
			"path":     param.Path,
			"error":    param.ErrorMessage,
		})
		switch {
		case param.StatusCode >= http.StatusInternalServerError:
			entry.Error("http request")
		case param.StatusCode >= http.StatusBadRequest:
			entry.Debug("http request")
		default:
			entry.Info("http request")
		}
		return ""
	})
}

// SessionManager keeps the logged-in user id in a signed cookie.
type SessionManager struct {
	store sessions.Store
	name  string
}

// NewSessionManager returns a cookie-backed SessionManager signed with secret.
func NewSessionManager(secret, name string, maxAge time.Duration) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: name}
}

func (m *SessionManager) session(c *gin.Context) *sessions.Session {
	// a cookie that fails to decode yields a fresh session along with the error
	sess, err := m.store.Get(c.Request, m.name)
	if err != nil {
		log.WithError(err).Debug("discarding undecodable session cookie")
	}
	return sess
}

// Login records userID in the caller's session.
func (m *SessionManager) Login(c *gin.Context, userID uint) error {
	sess := m.session(c)
	sess.Values[sessionUserKey] = userID
	return sess.Save(c.Request, c.Writer)
}

// Logout expires the caller's session cookie.
func (m *SessionManager) Logout(c *gin.Context) error {
	sess := m.session(c)
	delete(sess.Values, sessionUserKey)
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	return sess.Save(c.Request, c.Writer)
}

// UserID returns the logged-in user id, if any.
func (m *SessionManager) UserID(c *gin.Context) (uint, bool) {
	id, ok := m.session(c).Values[sessionUserKey].(uint)
	return id, ok && id != 0
}

// RequireLogin loads the session user into the context or redirects to the
// login page with the requested path as next.
func RequireLogin(sm *SessionManager, authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := sm.UserID(c); ok {
			user, err := authService.GetUser(c.Request.Context(), id)
			if err == nil {
				c.Set(contextUserKey, user)
				c.Next()
				return
			}
			if !customerrors.IsNotFound(err) {
				log.WithError(err).WithField("userID", id).Error("failed to load session user")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}
		c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func currentUser(c *gin.Context) *models.User {
	u, _ := c.Get(contextUserKey)
	user, _ := u.(*models.User)
	return user
}

// RateLimiter allows at most limit requests per client key in each
// fixed one-minute window. Windows live in a bounded LRU cache.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	visitors gcache.Cache
	now      func() time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

// NewRateLimiter returns a limiter tracking at most cacheSize clients.
func NewRateLimiter(limit, cacheSize int) *RateLimiter {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &RateLimiter{
		limit:    limit,
		window:   time.Minute,
		visitors: gcache.New(cacheSize).LRU().Build(),
		now:      time.Now,
	}
}

// Allow counts one request for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var w *rateWindow
	if v, err := l.visitors.Get(key); err == nil {
		w, _ = v.(*rateWindow)
	}
	if w == nil || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		if err := l.visitors.Set(key, w); err != nil {
			log.WithError(err).Warn("rate limiter cache write failed")
		}
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Middleware rejects requests over the limit with 429. A limiter with a
// non-positive limit lets everything through.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.limit <= 0 {
			c.Next()
			return
		}
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
