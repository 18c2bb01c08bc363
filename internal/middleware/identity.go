package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated staff user id, or 0.
func UserID(c echo.Context) uint64 {
	id, _ := c.Get(ctxUserID).(uint64)
	return id
}

// TenantID returns the tenant of the authenticated staff user.
func TenantID(c echo.Context) string {
	s, _ := c.Get(ctxTenantID).(string)
	return s
}

// Role returns the role claim of the authenticated staff user.
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// subject identifies the caller for rate limiting: the staff user id
// when authenticated, "anon" otherwise.
func subject(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
