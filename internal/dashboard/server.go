package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"walletscope/config"
	"walletscope/internal/audit"
	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/logger"
	"walletscope/models"
)

//go:embed templates/*.tmpl assets/*
var embeddedFS embed.FS

// HoldingsService computes holdings reports.
type HoldingsService interface {
	GetHoldings(ctx context.Context, c chain.Chain, address string) (*models.HoldingsResult, error)
}

// LoginStore records and lists dashboard logins.
type LoginStore interface {
	RecordLogin(ctx context.Context, username string) error
	Logins(ctx context.Context) ([]audit.Login, error)
}

// Server hosts the password-protected holdings dashboard.
type Server struct {
	cfg        config.DashboardConfig
	appName    string
	holdings   HoldingsService
	logins     LoginStore
	sessions   *sessions
	log        *logger.Log
	httpServer *http.Server
}

// NewServer returns nil when the dashboard is disabled. logins may be nil.
// Session cookies are always Secure in production and staging.
func NewServer(cfg config.DashboardConfig, appName string, holdings HoldingsService, logins LoginStore, log *logger.Log) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if holdings == nil {
		return nil, errors.New("dashboard requires a holdings service")
	}
	if cfg.Password == "" {
		return nil, errors.New("dashboard password is not configured")
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if config.IsProductionLike(config.AppEnvironment()) {
		cfg.SecureCookie = true
	}
	if appName == "" {
		appName = "walletscope"
	}

	return &Server{
		cfg:      cfg,
		appName:  appName,
		holdings: holdings,
		logins:   logins,
		sessions: newSessions(cfg.SessionSecret, cfg.SessionTTL),
		log:      log,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.WithComponent("dashboard").WithFields(logger.Fields{"address": s.cfg.Address}).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the dashboard listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl, err := template.New("dashboard").Funcs(templateFuncs).ParseFS(embeddedFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if assetsFS, err := fs.Sub(embeddedFS, "assets"); err == nil {
		router.StaticFS("/assets", http.FS(assetsFS))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/", s.loginPage)
	router.POST("/", s.login)
	router.GET("/logout", s.logout)

	pages := router.Group("/", s.requireSession(false))
	pages.GET("/dashboard", s.home)
	pages.POST("/eth", s.holdingsPage(chain.Ethereum))
	pages.POST("/sol", s.holdingsPage(chain.Solana))

	api := router.Group("/api", s.requireSession(true))
	api.GET("/holdings/:chain", s.holdingsJSON)
	api.GET("/logins", s.loginsJSON)
	api.GET("/status", s.statusJSON)

	return router, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithComponent("dashboard").WithFields(logger.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request served")
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil && parsed.Host != "" {
			addr = parsed.Host
		}
	}

	if strings.HasPrefix(addr, ":") && len(addr) > 1 {
		return "0.0.0.0" + addr
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil || !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}
	return addr
}
