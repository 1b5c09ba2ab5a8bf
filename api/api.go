// Package api exposes the expense tracker over HTTP: JSON endpoints for
// every account and expense operation, and the asset cache worker for
// everything else.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/eapayk/quanlitien/api/handler"
	"github.com/eapayk/quanlitien/assetcache"
	"github.com/eapayk/quanlitien/config"
	"github.com/eapayk/quanlitien/notify/webpush"
	"github.com/eapayk/quanlitien/scheduler"
	"github.com/eapayk/quanlitien/tracker"
)

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	tracker   *tracker.Manager
	worker    *assetcache.Worker
	webpush   *webpush.Client
	sched     *scheduler.Scheduler
	httpSrv   *http.Server
}

func New(cfg *config.Config, t *tracker.Manager, worker *assetcache.Worker, webpushClient *webpush.Client, sched *scheduler.Scheduler) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &Server{
		cfg:       cfg,
		ginEngine: gin.Default(),
		tracker:   t,
		worker:    worker,
		webpush:   webpushClient,
		sched:     sched,
	}, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions("quanlitien_session", store))
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))
	s.setupSession()

	h := handler.New(s.tracker, s.webpush)

	s.ginEngine.POST("/api/login", h.Login)
	s.ginEngine.POST("/api/register", h.Register)

	protected := s.ginEngine.Group("/api")
	protected.Use(handler.RequireAuth(s.tracker))

	protected.POST("/logout", h.Logout)

	protected.GET("/account", h.GetAccount)
	protected.PUT("/account", h.UpdateAccount)
	protected.DELETE("/account", h.DeleteAccount)
	protected.PUT("/account/password", h.ChangePassword)
	protected.PUT("/account/avatar", h.UpdateAvatar)
	protected.DELETE("/account/avatar", h.RemoveAvatar)

	protected.GET("/expenses", h.ListExpenses)
	protected.POST("/expenses", h.AddExpense)
	protected.PUT("/expenses/:id", h.UpdateExpense)
	protected.DELETE("/expenses/:id", h.DeleteExpense)

	protected.GET("/categories", h.ListCategories)
	protected.POST("/categories", h.AddCategory)
	protected.DELETE("/categories/:id", h.DeleteCategory)

	protected.PUT("/limit", h.SetMonthlyLimit)
	protected.GET("/summary", h.GetSummary)

	protected.GET("/theme", h.GetTheme)
	protected.PUT("/theme", h.UpdateTheme)
	protected.POST("/theme/reset", h.ResetTheme)

	wh := handler.NewWebPushHandler(s.webpush)
	s.ginEngine.GET("/api/webpush/key", wh.GetVAPIDKey)
	protected.POST("/webpush/subscribe", wh.Subscribe)
	protected.POST("/webpush/unsubscribe", wh.Unsubscribe)

	admin := handler.NewAdminHandler(s.sched, s.worker)
	protected.GET("/admin/jobs", admin.GetSchedulerJobs)
	protected.POST("/admin/jobs/:id/run", admin.RunSchedulerJob)
	protected.GET("/admin/cache/stats", admin.GetCacheStats)

	// Everything else is a shell asset and goes through the cache worker.
	if s.worker != nil {
		s.ginEngine.NoRoute(gin.WrapH(s.worker))
	}
}

// Run starts the HTTP server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.ginEngine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "listen", s.cfg.Listen)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
