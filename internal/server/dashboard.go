package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"kbridge/internal/ledger"
	"kbridge/internal/searcher"
	"kbridge/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"truncate": truncateRunes,
}).ParseFS(templateFS, "templates/*.html"))

type homePage struct {
	Endpoint string
	Healthy  bool
	Stats    *ledger.Stats
	StatsErr string
}

type comparePage struct {
	Query      string
	Strategies string // raw form value, kept for the sticky input
	Limit      int
	Comparison *searcher.Comparison
	Error      string
}

// handleHome renders the overview: remote endpoint, reachability, ledger
// counters.
func (s *Server) handleHome(c echo.Context) error {
	page := homePage{Endpoint: s.health.BaseURL()}

	hctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := s.health.Health(hctx); err != nil {
		s.logger.Warn("remote health check failed", "error", err)
	} else {
		page.Healthy = true
	}

	stats, err := s.ledger.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("ledger stats failed", "error", err)
		page.StatsErr = "ledger unavailable"
	} else {
		page.Stats = stats
	}

	return s.render(c, "index.html", page)
}

// handleCompare renders the side-by-side comparison. Without a query it
// shows just the form; validation problems appear inline on the page.
func (s *Server) handleCompare(c echo.Context) error {
	page := comparePage{
		Query:      strings.TrimSpace(c.QueryParam("q")),
		Strategies: c.QueryParam("strategies"),
	}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		page.Limit = n
	}

	if page.Query != "" {
		page.Comparison, page.Error = s.runComparison(c, page)
	}

	return s.render(c, "compare.html", page)
}

func (s *Server) runComparison(c echo.Context, page comparePage) (*searcher.Comparison, string) {
	strategies, err := parseStrategies(page.Strategies)
	if err != nil {
		return nil, err.Error()
	}

	cmp, err := s.comparer.Compare(c.Request().Context(), page.Query, strategies, page.Limit)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return nil, verr.Error()
		}
		s.logger.Error("comparison failed", "query", page.Query, "error", err)
		return nil, "comparison failed"
	}
	return cmp, ""
}

// parseStrategies splits a comma-separated strategy list. Empty input
// selects all strategies.
func parseStrategies(raw string) ([]types.SearchStrategy, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []types.SearchStrategy
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		strategy, err := types.ParseStrategy(part)
		if err != nil {
			return nil, err
		}
		out = append(out, strategy)
	}
	return out, nil
}

func (s *Server) render(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
