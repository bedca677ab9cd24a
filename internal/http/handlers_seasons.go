package http

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/leaderboard"
	"github.com/rankforge/leaderboard/internal/model"
)

type createSeasonReq struct {
	Name      string         `json:"name"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Metadata  map[string]any `json:"metadata"`
}

func createSeasonHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createSeasonReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.Name == "" {
			return apperr.New(apperr.BadRequest, "name is required")
		}

		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return apperr.New(apperr.BadRequest, "startDate must be RFC3339")
		}
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return apperr.New(apperr.BadRequest, "endDate must be RFC3339")
		}
		if !end.After(start) {
			return apperr.New(apperr.BadRequest, "endDate must be after startDate")
		}

		season, err := svc.CreateSeason(c.Request().Context(), model.Season{
			LeaderboardID: c.Param("id"),
			Name:          req.Name,
			StartDate:     start,
			EndDate:       end,
			IsActive:      true,
			Metadata:      model.JSONMap(req.Metadata),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, season)
	}
}

func listSeasonsHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		seasons, err := svc.ListSeasons(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"seasons": seasons})
	}
}

type setSeasonActiveReq struct {
	IsActive bool `json:"isActive"`
}

func setSeasonActiveHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setSeasonActiveReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if err := svc.SetSeasonActive(c.Request().Context(), c.Param("seasonId"), req.IsActive); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteSeasonHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.DeleteSeason(c.Request().Context(), c.Param("seasonId")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
