package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"kbridge/internal/config"
	"kbridge/internal/ledger"
	"kbridge/internal/searcher"
	"kbridge/pkg/types"
)

// Searcher is the query surface the REST layer exposes.
type Searcher interface {
	Search(ctx context.Context, query string, strategy types.SearchStrategy, limit int) ([]types.SearchResult, error)
}

// Comparer runs side-by-side strategy comparisons for the dashboard.
type Comparer interface {
	Compare(ctx context.Context, query string, strategies []types.SearchStrategy, limit int) (*searcher.Comparison, error)
}

// LedgerReader provides the stats shown on the overview page.
type LedgerReader interface {
	Stats(ctx context.Context) (*ledger.Stats, error)
}

// HealthChecker reports remote service reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
	BaseURL() string
}

// Server hosts the REST API and the comparison dashboard.
type Server struct {
	echo     *echo.Echo
	searcher Searcher
	comparer Comparer
	ledger   LedgerReader
	health   HealthChecker
	apiKey   string
	addr     string
	logger   *slog.Logger
}

// New assembles the echo instance, middleware and routes.
func New(search Searcher, compare Comparer, led LedgerReader, health HealthChecker, cfg config.Config, logger *slog.Logger) *Server {
	s := &Server{
		searcher: search,
		comparer: compare,
		ledger:   led,
		health:   health,
		apiKey:   cfg.APIKey,
		addr:     cfg.Addr,
		logger:   logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-API-Key"},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true, // run the error handler first so Status is final
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Warn("http request",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"latency", v.Latency, "error", v.Error)
			} else {
				logger.Info("http request",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"latency", v.Latency)
			}
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealthz)
	e.POST("/search", s.handleSearch, s.requireAPIKey)
	e.GET("/", s.handleHome)
	e.GET("/compare", s.handleCompare)

	s.echo = e
	return s
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is canceled, then drains with a 10s grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.addr)
	}()
	s.logger.Info("http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// errorHandler maps errors to the wire contract: client errors keep their
// message as the detail, everything else becomes a fixed generic body so
// upstream failures never leak to REST clients.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := "An internal error occurred"

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		code = he.Code
		detail = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	if jerr := c.JSON(code, map[string]string{"detail": detail}); jerr != nil {
		s.logger.Error("error response write failed", "error", jerr)
	}
}

// requireAPIKey gates a route behind the static X-API-Key header. With no
// key configured the route is open.
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKey == "" {
			return next(c)
		}
		if c.Request().Header.Get("X-API-Key") != s.apiKey {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing API key")
		}
		return next(c)
	}
}
