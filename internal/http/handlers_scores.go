package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/http/middleware"
	"github.com/rankforge/leaderboard/internal/scoring"
)

type scoreUpdateReq struct {
	LeaderboardID string  `json:"leaderboardId"`
	UserID        string  `json:"userId"`
	Score         float64 `json:"score"`
	Increment     bool    `json:"increment"`
}

func updateScoreHandler(engine *scoring.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scoreUpdateReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.LeaderboardID == "" || req.UserID == "" {
			return apperr.New(apperr.BadRequest, "leaderboardId and userId are required")
		}

		id, _ := middleware.IdentityFromCtx(c)
		newScore, rank, err := engine.UpdateScore(c.Request().Context(), id.Tenant.ID, id.Project.ID, scoring.UpdateEntry{
			LeaderboardID: req.LeaderboardID,
			UserID:        req.UserID,
			Score:         req.Score,
			Increment:     req.Increment,
		})
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, map[string]any{
			"leaderboardId": req.LeaderboardID,
			"userId":        req.UserID,
			"score":         newScore,
			"rank":          rank,
		})
	}
}

type batchUpdateReq struct {
	Entries []scoreUpdateReq `json:"entries"`
}

func batchUpdateScoreHandler(engine *scoring.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req batchUpdateReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if len(req.Entries) == 0 {
			return apperr.New(apperr.BadRequest, "entries must not be empty")
		}

		entries := make([]scoring.UpdateEntry, len(req.Entries))
		for i, e := range req.Entries {
			if e.LeaderboardID == "" || e.UserID == "" {
				return apperr.New(apperr.BadRequest, "leaderboardId and userId are required on every entry")
			}
			entries[i] = scoring.UpdateEntry{LeaderboardID: e.LeaderboardID, UserID: e.UserID, Score: e.Score, Increment: e.Increment}
		}

		id, _ := middleware.IdentityFromCtx(c)
		results, err := engine.BatchUpdateScore(c.Request().Context(), id.Tenant.ID, id.Project.ID, entries)
		if err != nil {
			log.Errorf("batch score update failed: %v", err)
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"processed": len(results), "results": results})
	}
}
