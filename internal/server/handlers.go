package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"kbridge/pkg/types"
)

type searchRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// handleSearch runs one query and returns the ranked results as a JSON
// array. Validation problems come back as 422 with a specific detail;
// remote failures surface as the generic 500 body.
func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "request body must be valid JSON")
	}

	strategy, err := types.ParseStrategy(req.SearchType)
	if err != nil {
		return validationError(err)
	}

	results, err := s.searcher.Search(c.Request().Context(), req.Query, strategy, 0)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return validationError(verr)
		}
		return fmt.Errorf("search: %w", err)
	}
	return c.JSON(http.StatusOK, results)
}

func validationError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
}
