package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/handler"
	"github.com/noah-isme/skolara-api/internal/middleware"
	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/service"
	"github.com/noah-isme/skolara-api/pkg/config"
	"github.com/noah-isme/skolara-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/skolara-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/skolara-api/pkg/middleware/requestid"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Timetables *handler.TimetableHandler
	Classes    *handler.ClassHandler
	Subjects   *handler.SubjectHandler
	Teachers   *handler.TeacherHandler
	Terms      *handler.TermHandler
	Tenants    *handler.TenantHandler
}

// Services groups cross-cutting services the middleware chain needs.
type Services struct {
	Auth    *service.AuthService
	Tenant  *service.TenantService
	Metrics *service.MetricsService
	Audit   *service.AuditService
}

// New assembles the gin engine: global middleware, public endpoints, the
// tenant-scoped API and the platform admin surface.
func New(cfg *config.Config, logr *zap.Logger, h Handlers, s Services) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(s.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// Tenant-scoped surface. JWT first so tenant resolution can cross-check
	// the token's tenant claim.
	scoped := api.Group("")
	scoped.Use(middleware.JWT(s.Auth))
	scoped.Use(middleware.Tenant(s.Tenant, cfg.Tenancy.Header))

	schoolAdmin := middleware.RequireRoles(models.RoleSchoolAdmin, models.RolePlatformAdmin)
	anyStaff := middleware.RequireRoles(models.RoleSchoolAdmin, models.RolePlatformAdmin, models.RoleTeacher)

	timetables := scoped.Group("/timetables")
	{
		timetables.POST("", schoolAdmin, middleware.Audit(s.Audit, "period.create", "timetable"), h.Timetables.Create)
		timetables.GET("/class/:classId", anyStaff, h.Timetables.ClassTimetable)
		timetables.GET("/class/:classId/export", anyStaff, h.Timetables.ExportClassTimetable)
		timetables.GET("/teacher/:teacherId", anyStaff, h.Timetables.TeacherTimetable)
		timetables.DELETE("/:id", schoolAdmin, middleware.Audit(s.Audit, "period.delete", "timetable"), h.Timetables.Delete)
	}

	classes := scoped.Group("/classes")
	{
		classes.GET("", anyStaff, h.Classes.List)
		classes.GET("/:id", anyStaff, h.Classes.Get)
		classes.POST("", schoolAdmin, middleware.Audit(s.Audit, "class.create", "class"), h.Classes.Create)
		classes.DELETE("/:id", schoolAdmin, middleware.Audit(s.Audit, "class.delete", "class"), h.Classes.Delete)
	}

	subjects := scoped.Group("/subjects")
	{
		subjects.GET("", anyStaff, h.Subjects.List)
		subjects.GET("/:id", anyStaff, h.Subjects.Get)
		subjects.POST("", schoolAdmin, middleware.Audit(s.Audit, "subject.create", "subject"), h.Subjects.Create)
		subjects.DELETE("/:id", schoolAdmin, middleware.Audit(s.Audit, "subject.delete", "subject"), h.Subjects.Delete)
	}

	teachers := scoped.Group("/teachers")
	{
		teachers.GET("", anyStaff, h.Teachers.List)
		teachers.GET("/:id", anyStaff, h.Teachers.Get)
		teachers.POST("", schoolAdmin, middleware.Audit(s.Audit, "teacher.create", "teacher"), h.Teachers.Create)
		teachers.DELETE("/:id", schoolAdmin, middleware.Audit(s.Audit, "teacher.deactivate", "teacher"), h.Teachers.Deactivate)
	}

	terms := scoped.Group("/terms")
	{
		terms.GET("", anyStaff, h.Terms.List)
		terms.GET("/:id", anyStaff, h.Terms.Get)
		terms.POST("", schoolAdmin, middleware.Audit(s.Audit, "term.create", "term"), h.Terms.Create)
		terms.DELETE("/:id", schoolAdmin, middleware.Audit(s.Audit, "term.delete", "term"), h.Terms.Delete)
	}

	// Platform back office: authenticated, platform admins only, no tenant
	// scoping.
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(s.Auth))
	admin.Use(middleware.RequireRoles(models.RolePlatformAdmin))
	{
		admin.GET("/tenants", h.Tenants.List)
		admin.POST("/tenants", middleware.Audit(s.Audit, "tenant.create", "tenant"), h.Tenants.Create)
		admin.PUT("/tenants/:id/active", middleware.Audit(s.Audit, "tenant.set_active", "tenant"), h.Tenants.SetActive)
	}

	return r
}
