// Package api wires the HTTP handlers onto the gin router. Two surfaces are
// mounted: the legacy /api routes and the hardened /api/v2 routes.
package api

import (
	"github.com/abigailajohn/VVMA/internal/config"
	"github.com/abigailajohn/VVMA/internal/groups"
	"github.com/abigailajohn/VVMA/internal/http/api/handlers"
	"github.com/abigailajohn/VVMA/internal/mail"
	"github.com/abigailajohn/VVMA/internal/otp"
	"github.com/abigailajohn/VVMA/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything the route tree needs.
type Deps struct {
	DB      *gorm.DB
	JWT     config.JWTConfig
	BaseURL string
	Engine  *groups.Engine
	OTP     *otp.Manager
	Limiter *ratelimit.Manager
	Mailer  mail.Mailer
}

// RegisterRoutes mounts all endpoints on router.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	health := handlers.NewHealthHandler(deps.DB)
	auth := handlers.NewAuthHandler(deps.DB, deps.JWT)
	users := handlers.NewUserHandler(deps.DB, deps.Engine)
	groupH := handlers.NewGroupHandler(deps.Engine, deps.BaseURL)
	reset := handlers.NewResetHandler(deps.DB, deps.OTP, deps.Limiter, deps.Mailer)

	router.GET("/healthz", health.Healthz)

	requireAuth := authMiddleware(deps.JWT)

	v1 := router.Group("/api")
	registerCommon(v1, requireAuth, auth, users, groupH)
	v1.POST("/reset-password", reset.RequestV1)
	v1.POST("/reset-password/verify", reset.VerifyV1)

	v2 := router.Group("/api/v2")
	registerCommon(v2, requireAuth, auth, users, groupH)
	v2.POST("/groups/join-by-invite", requireAuth, groupH.JoinByInvite)
	v2.POST("/groups/:id/refresh-invite", requireAuth, groupH.RefreshInvite)
	v2.POST("/auth/reset-password", reset.RequestV2)
	v2.POST("/auth/reset-password/verify", reset.VerifyV2)
}

// registerCommon mounts the routes shared by both API versions. Profile read
// and update are served without authentication; group routes all sit behind
// the bearer-token middleware.
func registerCommon(rg *gin.RouterGroup, requireAuth gin.HandlerFunc, auth *handlers.AuthHandler, users *handlers.UserHandler, groupH *handlers.GroupHandler) {
	rg.POST("/auth/register", auth.Register)
	rg.POST("/auth/login", auth.Login)

	rg.GET("/users/me", requireAuth, users.Me)
	rg.GET("/users/:id", users.Get)
	rg.PATCH("/users/:id", users.Update)
	rg.DELETE("/users/:id", requireAuth, users.Delete)

	g := rg.Group("/groups", requireAuth)
	g.GET("", groupH.List)
	g.POST("", groupH.Create)
	g.GET("/:id", groupH.Get)
	g.PATCH("/:id", groupH.Update)
	g.DELETE("/:id", groupH.Delete)
	g.POST("/:id/join", groupH.Join)
	g.GET("/:id/members", groupH.Members)
	g.DELETE("/:id/members/:uid", groupH.RemoveMember)
	g.PUT("/:id/promote/:uid", groupH.Promote)
}
