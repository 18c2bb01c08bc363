package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// StaffLookup loads staff accounts through a read-through cache.
type StaffLookup interface {
	Get(ctx context.Context, key string) (model.StaffUser, cache.Confidence, error)
	Verify(ctx context.Context, key string) (model.StaffUser, error)
}

// HeaderConfidence reports whether the role check used a cached or a
// freshly verified account.
const HeaderConfidence = "X-Role-Confidence"

// StaffCheck confirms that the account behind the token still exists,
// is active and still holds the token's tenant and role.  Safe methods
// may use a cached account; every write is checked against the store.
func StaffCheck(staff StaffLookup, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strconv.FormatUint(UserID(c), 10)
			ctx := c.Request().Context()

			var (
				u    model.StaffUser
				conf cache.Confidence
				err  error
			)
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				u, conf, err = staff.Get(ctx, key)
			default:
				u, err = staff.Verify(ctx, key)
				conf = cache.Verified
			}
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown account", "code": "unauthorized"})
			case err != nil:
				log.Error("staff lookup failed", zap.String("user_id", key), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "account check unavailable", "code": "unavailable"})
			}
			if !u.IsActive || u.TenantID != TenantID(c) || u.Role != Role(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
			}
			c.Response().Header().Set(HeaderConfidence, string(conf))
			return next(c)
		}
	}
}
