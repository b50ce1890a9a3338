package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marcorisi/discount-codes/cmd"
	"github.com/marcorisi/discount-codes/internal/api"
	"github.com/marcorisi/discount-codes/internal/config"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/services"
)

// RunServerCmd starts the HTTP server.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Start the HTTP server",
	Long: `Opens and migrates the database, wires the share and auth services
and serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg := cmd.Cfg
		if cfg.Session.Secret == "dev-secret-key" {
			log.Warn("session.secret is the development default; set SESSION_SECRET in production")
		}

		db, err := cmd.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		defer cmd.CloseDatabase(db)

		shareRepo := repository.NewShareRepository(db)
		codeRepo := repository.NewCodeRepository(db)
		userRepo := repository.NewUserRepository(db)
		log.Debug("repositories initialised")

		router := NewRouter(cfg,
			services.NewShareService(shareRepo, codeRepo, cmd.ShareSettings(cfg)),
			services.NewAuthService(userRepo),
		)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", srv.Addr).Info("starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case sig := <-quit:
			log.WithField("signal", sig.String()).Info("shutting down server")
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	},
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg *config.Config, shareService *services.ShareService, authService *services.AuthService) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(api.RequestLogger(), gin.Recovery())

	var limiter *api.RateLimiter
	if cfg.Shares.ViewRatePerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.Shares.ViewRatePerMinute, cfg.Shares.RateCacheSize)
	}

	api.SetupRoutes(router, api.Dependencies{
		ShareService: shareService,
		AuthService:  authService,
		Sessions:     api.NewSessionManager(cfg.Session.Secret, cfg.Session.Name, cfg.Session.MaxAge),
		ViewLimiter:  limiter,
		BaseURL:      cfg.Server.BaseURL,
	})
	return router
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
