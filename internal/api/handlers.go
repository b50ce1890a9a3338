package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/services"
)

const timeLayout = time.RFC3339

// Dependencies is everything the routes need.
type Dependencies struct {
	ShareService *services.ShareService
	AuthService  *services.AuthService
	Sessions     *SessionManager
	// ViewLimiter throttles public share views; nil disables it
	ViewLimiter *RateLimiter
	BaseURL     string
}

// SetupRoutes registers every route on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(RobotsTag())

	router.GET("/health", HealthCheckHandler)
	router.GET("/robots.txt", RobotsHandler)

	requireLogin := RequireLogin(deps.Sessions, deps.AuthService)

	auth := router.Group("/auth")
	{
		auth.GET("/login", LoginPageHandler)
		auth.POST("/login", LoginHandler(deps.AuthService, deps.Sessions))
		auth.POST("/logout", requireLogin, LogoutHandler(deps.Sessions))
	}

	shares := router.Group("/shares")
	{
		shares.GET("/", requireLogin, ListSharesHandler(deps.ShareService, deps.BaseURL))
		shares.POST("/create/:code_id", requireLogin, CreateShareHandler(deps.ShareService))
		shares.POST("/:id/delete", requireLogin, DeleteShareHandler(deps.ShareService))
		// public: the token is the only credential
		shares.GET("/:id", deps.ViewLimiter.Middleware(), ViewShareHandler(deps.ShareService))
	}
}

// HealthCheckHandler reports that the process is serving.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RobotsHandler disallows every crawler from every path.
func RobotsHandler(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

// ViewShareHandler renders a shared discount code for anyone holding its
// token. Each successful view counts one visit; an expired link renders the
// expired page with 200 and counts nothing.
func ViewShareHandler(shareService *services.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("id")

		view, err := shareService.ViewShare(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		if view.Expired {
			c.JSON(http.StatusOK, gin.H{
				"status":  "expired",
				"title":   "Link Expired",
				"message": "This share link has expired and is no longer available.",
			})
			return
		}

		code := view.Code
		c.JSON(http.StatusOK, gin.H{
			"status":         "valid",
			"store_name":     code.StoreName,
			"code":           code.Code,
			"discount_value": code.DiscountValue,
			"notes":          code.Notes,
			"store_url":      code.StoreURL,
			"expires_at":     view.Share.ExpiresAt.Format(timeLayout),
			"visit_count":    view.Share.VisitCount,
		})
	}
}

// CreateShareHandler shares the code named in the path and redirects to the
// new public link. An optional expires_in form value (e.g. "48h") overrides
// the default lifetime.
func CreateShareHandler(shareService *services.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		codeID, ok := parseID(c, "code_id")
		if !ok {
			return
		}

		var expiresAt *time.Time
		if raw := strings.TrimSpace(c.PostForm("expires_in")); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in must be a duration such as 48h"})
				return
			}
			at := time.Now().Add(d)
			expiresAt = &at
		}

		share, err := shareService.CreateShare(c.Request.Context(), codeID, currentUser(c), expiresAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, "/shares/"+share.Token)
	}
}

type shareItem struct {
	ID         uint    `json:"id"`
	Token      string  `json:"token"`
	URL        string  `json:"url"`
	Code       string  `json:"code"`
	StoreName  string  `json:"store_name"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  string  `json:"expires_at"`
	VisitCount int     `json:"visit_count"`
	Expired    bool    `json:"expired"`
	Value      *string `json:"discount_value,omitempty"`
}

// ListSharesHandler lists the caller's shares, most recent first.
func ListSharesHandler(shareService *services.ShareService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		shares, err := shareService.ListShares(c.Request.Context(), currentUser(c))
		if err != nil {
			respondError(c, err)
			return
		}
		items := make([]shareItem, 0, len(shares))
		for i := range shares {
			items = append(items, toShareItem(shareService, &shares[i], baseURL))
		}
		c.JSON(http.StatusOK, gin.H{"shares": items})
	}
}

func toShareItem(shareService *services.ShareService, s *models.Share, baseURL string) shareItem {
	return shareItem{
		ID:         s.ID,
		Token:      s.Token,
		URL:        services.ShareURL(baseURL, s.Token),
		Code:       s.DiscountCode.Code,
		StoreName:  s.DiscountCode.StoreName,
		CreatedAt:  s.CreatedAt.Format(timeLayout),
		ExpiresAt:  s.ExpiresAt.Format(timeLayout),
		VisitCount: s.VisitCount,
		Expired:    shareService.IsExpired(s),
		Value:      s.DiscountCode.DiscountValue,
	}
}

// DeleteShareHandler deletes one of the caller's shares and redirects to the list.
func DeleteShareHandler(shareService *services.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shareID, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := shareService.DeleteShare(c.Request.Context(), shareID, currentUser(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, "/shares/")
	}
}

// LoginPageHandler describes how to log in.
func LoginPageHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "POST username and password to /auth/login",
		"next":    safeNext(c.Query("next")),
	})
}

// LoginHandler checks the posted credentials, opens a session and redirects
// to next (a local path) or to the share list.
func LoginHandler(authService *services.AuthService, sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds services.Credentials
		if err := c.ShouldBind(&creds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login form"})
			return
		}
		user, err := authService.Authenticate(c.Request.Context(), creds)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := sm.Login(c, user.ID); err != nil {
			respondError(c, err)
			return
		}
		next := safeNext(c.Query("next"))
		if next == "" {
			next = safeNext(c.PostForm("next"))
		}
		if next == "" {
			next = "/shares/"
		}
		c.Redirect(http.StatusFound, next)
	}
}

// LogoutHandler ends the session.
func LogoutHandler(sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sm.Logout(c); err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, loginPath)
	}
}

// safeNext accepts only local absolute paths, never another host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

// parseID reads a numeric path parameter. Anything else is answered with 404
// since no resource can match it.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}

// respondError writes err with the status customerrors.HTTPStatus maps it to.
// Unexpected errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := customerrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
