package http

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/identity"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/quota"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/util"
)

type createTenantReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func createTenantHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTenantReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.Name == "" || req.Email == "" {
			return apperr.New(apperr.BadRequest, "name and email are required")
		}
		t, err := svc.CreateTenant(c.Request().Context(), req.Name, req.Email)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, t)
	}
}

type createProjectReq struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
}

func createProjectHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createProjectReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.TenantID == "" || req.Name == "" {
			return apperr.New(apperr.BadRequest, "tenantId and name are required")
		}
		p, err := svc.CreateProject(c.Request().Context(), req.TenantID, req.Name)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, p)
	}
}

type createApiKeyReq struct {
	TenantID  string `json:"tenantId"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

func createApiKeyHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createApiKeyReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.TenantID == "" || req.ProjectID == "" || req.Name == "" {
			return apperr.New(apperr.BadRequest, "tenantId, projectId and name are required")
		}
		k, plaintext, err := svc.CreateApiKey(c.Request().Context(), req.TenantID, req.ProjectID, req.Name)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, map[string]any{
			"apiKey":    k,
			"plaintext": plaintext,
		})
	}
}

func listApiKeysHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		keys, err := svc.ListKeys(c.Request().Context(), c.Param("projectId"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"apiKeys": keys})
	}
}

func revokeApiKeyHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.RevokeApiKey(c.Request().Context(), c.Param("projectId"), c.Param("keyId")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func rotateApiKeyHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		k, plaintext, err := svc.RotateApiKey(c.Request().Context(), c.QueryParam("tenantId"), c.Param("projectId"), c.Param("keyId"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, map[string]any{
			"apiKey":    k,
			"plaintext": plaintext,
		})
	}
}

type validateReq struct {
	ApiKey string `json:"apiKey"`
}

func validateApiKeyHandler(svc *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req validateReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		id, err := svc.ValidateApiKey(c.Request().Context(), req.ApiKey)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, id)
	}
}

type createSubscriptionReq struct {
	TenantID    string `json:"tenantId"`
	PlanType    string `json:"planType"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

// createSubscriptionHandler inserts a new subscription for a tenant,
// enforcing the "at most one active subscription per tenant" invariant
// against the relational row rather than assuming the caller (the billing
// provider's webhook integration) already checked.
func createSubscriptionHandler(subs repository.SubscriptionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createSubscriptionReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.TenantID == "" || req.PlanType == "" {
			return apperr.New(apperr.BadRequest, "tenantId and planType are required")
		}
		plan := model.PlanType(req.PlanType)
		if !plan.Valid() {
			return apperr.New(apperr.BadRequest, "invalid planType")
		}

		ctx := c.Request().Context()
		existing, err := subs.GetActiveByTenant(ctx, req.TenantID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.Conflict, "tenant already has an active subscription")
		}

		periodStart, err := parsePeriodBound(req.PeriodStart, time.Now().UTC())
		if err != nil {
			return apperr.New(apperr.BadRequest, "invalid periodStart")
		}
		periodEnd, err := parsePeriodBound(req.PeriodEnd, periodStart.AddDate(0, 1, 0))
		if err != nil {
			return apperr.New(apperr.BadRequest, "invalid periodEnd")
		}

		sub := model.Subscription{
			ID:          util.New(),
			TenantID:    req.TenantID,
			PlanType:    plan,
			Status:      model.SubscriptionActive,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			CreatedAt:   time.Now().UTC(),
		}
		if err := subs.Insert(ctx, sub); err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, sub)
	}
}

func parsePeriodBound(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func cancelSubscriptionHandler(subs repository.SubscriptionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		atPeriodEnd := c.QueryParam("atPeriodEnd") != "false"
		if err := subs.Cancel(c.Request().Context(), c.Param("id"), atPeriodEnd); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func subscriptionsByTenantHandler(subs repository.SubscriptionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := subs.GetActiveByTenant(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		if sub == nil {
			return apperr.New(apperr.NotFound, "no active subscription for tenant")
		}
		return c.JSON(http.StatusOK, sub)
	}
}

// subscriptionUsageCheckHandler answers the quota question by subscription
// id rather than by the caller's own auth context, since this is an
// internal-plane route a billing or support tool calls on another
// tenant's behalf.
func subscriptionUsageCheckHandler(subs repository.SubscriptionsRepository, quotaSvc *quota.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := subs.GetByID(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		if sub == nil {
			return apperr.New(apperr.NotFound, "subscription not found")
		}
		check, err := quotaSvc.CheckTenant(c.Request().Context(), sub.TenantID, sub.PlanType)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, check)
	}
}

type recordUsageReq struct {
	TenantID         string `json:"tenantId"`
	ProjectID        string `json:"projectId"`
	ScoreUpdates     int64  `json:"scoreUpdates"`
	LeaderboardReads int64  `json:"leaderboardReads"`
}

// recordUsageHandler lets an out-of-band caller (a batch importer, a
// replayed dead-letter queue) roll counts into the same monthly ledger
// the gateway's own UsageTrackingMiddleware writes to on the hot path.
func recordUsageHandler(quotaSvc *quota.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req recordUsageReq
		if err := c.Bind(&req); err != nil {
			return apperr.New(apperr.BadRequest, "malformed request body")
		}
		if req.TenantID == "" || req.ProjectID == "" {
			return apperr.New(apperr.BadRequest, "tenantId and projectId are required")
		}
		if err := quotaSvc.RecordUsage(c.Request().Context(), req.TenantID, req.ProjectID, req.ScoreUpdates, req.LeaderboardReads); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func usageByTenantHandler(quotaSvc *quota.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := quotaSvc.RequestsThisMonth(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"tenantId": c.Param("id"), "requestsThisMonth": n})
	}
}

