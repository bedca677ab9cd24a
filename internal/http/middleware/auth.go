package middleware

import (
	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/cache"
	"github.com/rankforge/leaderboard/internal/identity"
)

const identityCtxKey = "identity"

// IdentityFromCtx extracts the authenticated Identity set by
// APIKeyMiddleware.
func IdentityFromCtx(c echo.Context) (identity.Identity, bool) {
	v := c.Get(identityCtxKey)
	id, ok := v.(identity.Identity)
	return id, ok
}

// APIKeyMiddleware authenticates requests using the X-API-Key header. It
// checks the auth cache first and only falls through to the relational
// lookup (and an argon2 compare) on a cache miss.
func APIKeyMiddleware(identitySvc *identity.Service, authCache *cache.AuthCache) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get("X-API-Key")
			if key == "" {
				return apperr.New(apperr.Unauthenticated, "missing api key")
			}

			ctx := c.Request().Context()
			if id, ok := authCache.Get(ctx, key); ok {
				c.Set(identityCtxKey, *id)
				setIdentityHeaders(c, *id)
				return next(c)
			}

			id, err := identitySvc.ValidateApiKey(ctx, key)
			if err != nil {
				return err
			}
			_ = authCache.Set(ctx, key, id)

			c.Set(identityCtxKey, id)
			setIdentityHeaders(c, id)
			return next(c)
		}
	}
}

func setIdentityHeaders(c echo.Context, id identity.Identity) {
	c.Response().Header().Set("X-Tenant-Id", id.Tenant.ID)
	c.Response().Header().Set("X-Project-Id", id.Project.ID)
	c.Response().Header().Set("X-Plan-Type", string(id.Plan))
}

// InternalSecretMiddleware gates the internal control-plane routes behind
// a shared secret, since they are not meant to be reachable with a
// tenant-scoped api key.
func InternalSecretMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" || c.Request().Header.Get("X-Internal-Secret") != secret {
				return apperr.New(apperr.Forbidden, "missing or invalid internal secret")
			}
			return next(c)
		}
	}
}
