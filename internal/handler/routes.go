package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-portal-api/internal/middleware"
	"github.com/noah-isme/report-portal-api/internal/models"
	"github.com/noah-isme/report-portal-api/internal/repository"
	"github.com/noah-isme/report-portal-api/internal/service"
)

// Handlers bundles the HTTP handlers for route registration.
type Handlers struct {
	Auth        *AuthHandler
	User        *UserHandler
	Department  *DepartmentHandler
	Definition  *DefinitionHandler
	Submission  *SubmissionHandler
	Aggregation *AggregationHandler
	Dashboard   *DashboardHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under the given prefix. Everything except
// login and refresh sits behind the JWT middleware; admin surfaces add RBAC.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, userRepo *repository.UserRepository) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), h.Auth.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), h.Auth.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	departments := protected.Group("/departments")
	{
		departments.GET("", h.Department.List)
		departments.GET("/:id", h.Department.Get)

		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		departments.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "departments"), h.Department.Create)
		departments.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "departments"), h.Department.Update)
		departments.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "departments"), h.Department.Delete)
	}

	users := protected.Group("/users")
	{
		users.GET("", middleware.RBAC(string(models.RoleAdmin), "GENERAL"), h.User.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.User.Get)

		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		users.POST("", adminOnly, h.User.Create)
		users.PUT("/:id", adminOnly, h.User.Update)
		users.DELETE("/:id", adminOnly, h.User.Delete)
	}

	definitions := protected.Group("/definitions")
	{
		definitions.GET("", h.Definition.List)
		definitions.GET("/:id", h.Definition.Get)

		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		definitions.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionCreate, "report_definitions"), h.Definition.Create)
		definitions.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionUpdate, "report_definitions"), h.Definition.Update)
		definitions.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionDelete, "report_definitions"), h.Definition.Delete)
	}

	submissions := protected.Group("/submissions")
	{
		submissions.GET("", h.Submission.List)
		submissions.GET("/pending", h.Submission.ApprovalQueue)
		submissions.GET("/:id", h.Submission.Get)
		submissions.POST("", h.Submission.Create)
		submissions.PUT("/:id", h.Submission.Update)
		submissions.POST("/:id/submit", h.Submission.Submit)
		submissions.POST("/:id/approve", h.Submission.Approve)
		submissions.POST("/:id/reject", h.Submission.Reject)
	}

	protected.GET("/aggregation", h.Aggregation.Aggregate)
	protected.GET("/aggregation/export", h.Aggregation.Export)
	protected.GET("/dashboard", h.Dashboard.Overview)
}
