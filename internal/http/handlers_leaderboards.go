package http

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/http/middleware"
	"github.com/rankforge/leaderboard/internal/leaderboard"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/quota"
	"github.com/rankforge/leaderboard/internal/scoring"
)

func topHandler(engine *scoring.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))
		id, _ := middleware.IdentityFromCtx(c)

		entries, total, err := engine.Top(c.Request().Context(), id.Tenant.ID, id.Project.ID, c.Param("id"), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"entries": entries, "total": total})
	}
}

func rankHandler(engine *scoring.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		withNeighbors := c.QueryParam("withNeighbors") == "true"
		neighborCount, _ := strconv.Atoi(c.QueryParam("neighborCount"))
		if neighborCount == 0 && withNeighbors {
			neighborCount = 5
		}
		id, _ := middleware.IdentityFromCtx(c)

		result, err := engine.RankOf(c.Request().Context(), id.Tenant.ID, id.Project.ID, c.Param("id"), c.Param("userId"), withNeighbors, neighborCount)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

type createLeaderboardReq struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	SortOrder     string         `json:"sortOrder"`
	UpdateMode    string         `json:"updateMode"`
	ResetSchedule string         `json:"resetSchedule"`
	TTLDays       int            `json:"ttlDays"`
	Metadata      map[string]any `json:"metadata"`
}

func createLeaderboardHandler(svc *leaderboard.Service, quotaSvc *quota.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createLeaderboardReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.Name == "" {
			return apperr.New(apperr.BadRequest, "name is required")
		}

		id, _ := middleware.IdentityFromCtx(c)
		check, err := quotaSvc.Check(c.Request().Context(), id.Tenant.ID, id.Project.ID, id.Plan)
		if err != nil {
			return err
		}

		lb, err := svc.Create(c.Request().Context(), model.Leaderboard{
			ProjectID:     id.Project.ID,
			TenantID:      id.Tenant.ID,
			Name:          req.Name,
			Description:   req.Description,
			SortOrder:     model.SortOrder(req.SortOrder),
			UpdateMode:    model.UpdateMode(req.UpdateMode),
			ResetSchedule: req.ResetSchedule,
			TTLDays:       req.TTLDays,
			IsActive:      true,
			Metadata:      model.JSONMap(req.Metadata),
		}, check.Leaderboards.Limit, check.Leaderboards.Used)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, lb)
	}
}

func listLeaderboardsHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.IdentityFromCtx(c)
		lbs, err := svc.List(c.Request().Context(), id.Project.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"leaderboards": lbs})
	}
}

func getLeaderboardHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.IdentityFromCtx(c)
		lb, err := svc.Get(c.Request().Context(), c.Param("id"), id.Project.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, lb)
	}
}

type updateLeaderboardReq struct {
	Name          *string        `json:"name"`
	Description   *string        `json:"description"`
	SortOrder     *string        `json:"sortOrder"`
	UpdateMode    *string        `json:"updateMode"`
	ResetSchedule *string        `json:"resetSchedule"`
	TTLDays       *int           `json:"ttlDays"`
	IsActive      *bool          `json:"isActive"`
	Metadata      map[string]any `json:"metadata"`
}

func updateLeaderboardHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.IdentityFromCtx(c)
		existing, err := svc.Get(c.Request().Context(), c.Param("id"), id.Project.ID)
		if err != nil {
			return err
		}

		var req updateLeaderboardReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}

		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.Description != nil {
			existing.Description = *req.Description
		}
		if req.SortOrder != nil {
			existing.SortOrder = model.SortOrder(*req.SortOrder)
		}
		if req.UpdateMode != nil {
			existing.UpdateMode = model.UpdateMode(*req.UpdateMode)
		}
		if req.ResetSchedule != nil {
			existing.ResetSchedule = *req.ResetSchedule
		}
		if req.TTLDays != nil {
			existing.TTLDays = *req.TTLDays
		}
		if req.IsActive != nil {
			existing.IsActive = *req.IsActive
		}
		if req.Metadata != nil {
			existing.Metadata = model.JSONMap(req.Metadata)
		}

		updated, err := svc.Update(c.Request().Context(), existing)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteLeaderboardHandler(svc *leaderboard.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
