package http

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/repository"
)

// historyHandler serves a leaderboard's score event history from the
// ClickHouse mirror rather than MySQL, the same operational-store vs
// reporting-store split used for usage analytics elsewhere.
func historyHandler(chScoreEvents repository.CHScoreEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))

		events, err := chScoreEvents.ListByLeaderboard(c.Request().Context(), c.Param("id"), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"events": events})
	}
}
