package main

import (
	"github.com/joegen/opalvoip-opal/internal/httpapi"
	"github.com/joegen/opalvoip-opal/internal/rbac"
	"github.com/joegen/opalvoip-opal/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, sim telephony.SimulatorHandler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)
	r.POST("/v1/auth/token", h.IssueToken)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// Admin-only kinds are checked again per envelope.
		v1.POST("/messages", rbac.RequireAnyRole(rbac.Operators...), h.PostMessage)
		// Taking the next event consumes and releases it, so only the
		// controlling application may do it. Observers use the stream.
		v1.POST("/events/next", rbac.RequireAnyRole(rbac.Operators...), h.PollEvent)

		read := v1.Group("")
		read.Use(rbac.RequireAnyRole(rbac.Readers...))
		{
			read.GET("/events/stream", h.StreamEvents)
			read.GET("/calls", h.ListCalls)
			read.GET("/calls/:token", h.GetCall)
			read.GET("/registrations", h.ListRegistrations)
			read.GET("/reports/calls", h.CallsReport)
		}

		simGroup := v1.Group("/sim")
		simGroup.Use(rbac.RequireAnyRole(rbac.Admins...))
		sim.Register(simGroup)

		// Hidden maintenance role is allowed here and nowhere else.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleMaintenance))
		{
			admin.GET("/overrides", h.ListOverrides)
			admin.PUT("/overrides/:id", h.PutOverride)
			admin.DELETE("/overrides/:id", h.DeleteOverride)
		}
	}
}
