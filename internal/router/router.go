package router // package router registers the HTTP routes of the booking API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterGuest registers the tenant scoped booking workflow used by
// widgets.  Tenants are addressed by slug or id.  responseCache only
// wraps availability; everything else reads or writes live state.
func RegisterGuest(e *echo.Echo, h *handler.BookingHandler, responseCache echo.MiddlewareFunc) {
	t := e.Group("/v1/tenants/:tenant")
	t.GET("", h.GetTenant)
	t.GET("/availability", h.Availability, responseCache)
	t.POST("/holds", h.CreateHold)
	t.DELETE("/holds/:id", h.ReleaseHold)
	t.POST("/payment-intents", h.CreatePaymentIntent)
	t.POST("/reservations", h.Confirm)

	r := e.Group("/v1/reservations")
	r.GET("/:id", h.GetReservation)
	r.POST("/:id/cancel", h.CancelReservation)
}

// RegisterAuth registers the staff session endpoints.  Login, refresh
// and logout need no access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterStaff registers the floor endpoints.  Every request carries a
// staff access token; the account is re-checked through staff, from
// cache on reads and from the store on writes.
func RegisterStaff(e *echo.Echo, h *handler.BookingHandler, a *handler.AuthHandler, jwtSecret string, staff middleware.StaffLookup) {
	g := e.Group("/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleStaff),
		middleware.StaffCheck(staff, a.Log),
	)
	g.GET("/me", a.Me)
	g.GET("/bookings", h.ListBookings)
	g.PATCH("/bookings/:id/status", h.UpdateStatus)
}
