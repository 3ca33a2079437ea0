package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/handler"
	"github.com/arkisys/registrar-api/internal/middleware"
	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/repository"
	"github.com/arkisys/registrar-api/internal/service"
	"github.com/arkisys/registrar-api/pkg/config"
	"github.com/arkisys/registrar-api/pkg/logger"
	corsmiddleware "github.com/arkisys/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arkisys/registrar-api/pkg/middleware/requestid"
)

// Deps carries everything route registration needs.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Metrics  *service.MetricsService
	AuditLog *repository.UserRepository

	AuthHandler        *handler.AuthHandler
	RequestHandler     *handler.RequestHandler
	StudentHandler     *handler.StudentHandler
	RequirementHandler *handler.RequirementHandler
	ImportHandler      *handler.ImportHandler
	DocumentHandler    *handler.DocumentHandler
	CertificateHandler *handler.CertificateHandler
	MetricsHandler     *handler.MetricsHandler
	LegacyHandler      *handler.LegacyHandler
}

// New assembles the gin engine with all portal routes.
func New(d Deps) *gin.Engine {
	if d.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", d.MetricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", d.MetricsHandler.Prometheus)

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := d.Config.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login)
	authd := auth.Group("", middleware.JWT(d.Auth))
	authd.POST("/change-password", d.AuthHandler.ChangePassword)
	authd.GET("/me", d.AuthHandler.Me)

	registrar := api.Group("", middleware.JWT(d.Auth), middleware.RequireRoles(models.RoleRegistrar, models.RoleAdmin))

	requests := registrar.Group("/requests")
	requests.GET("", d.RequestHandler.List)
	requests.GET("/stats", d.RequestHandler.Stats)
	requests.GET("/schedule-window", d.RequestHandler.Window)
	requests.GET("/expected-days", d.RequestHandler.ExpectedDays)
	requests.GET("/:id", d.RequestHandler.Get)
	requests.GET("/:id/owner", d.RequestHandler.Owner)
	requests.POST("/:id/process", d.RequestHandler.Process)
	requests.POST("/:id/cancel", d.RequestHandler.Cancel)
	requests.POST("/:id/schedule", d.RequestHandler.ScheduleRelease)
	requests.GET("/:id/schedule", d.RequestHandler.GetSchedule)
	requests.GET("/:id/attachments", d.RequirementHandler.Attachments)
	requests.GET("/:id/attachments/download", d.RequirementHandler.DownloadAll)
	requests.POST("/:id/requirements/viewed", d.RequirementHandler.MarkViewed)
	requests.POST("/:id/certificate", d.CertificateHandler.Generate)

	students := registrar.Group("/students")
	students.GET("", d.StudentHandler.List)
	students.POST("", d.StudentHandler.Create)
	students.GET("/export", middleware.Audit(d.AuditLog, models.AuditActionRosterExport, "student"), d.StudentHandler.Export)
	students.POST("/import", d.ImportHandler.Import)
	students.GET("/:id", d.StudentHandler.Get)
	students.PUT("/:id", d.StudentHandler.Update)
	students.GET("/:id/documents", d.StudentHandler.Documents)

	registrar.GET("/attachments/:id/comments", d.RequirementHandler.Comments)
	registrar.POST("/attachments/:id/comments", d.RequirementHandler.AddComment)
	registrar.PUT("/comments/:id/status", d.RequirementHandler.UpdateCommentStatus)

	registrar.POST("/documents/upload", d.DocumentHandler.Upload)
	registrar.POST("/certificates/batch", d.CertificateHandler.GenerateBatch)

	// Signed download links are shared outside authenticated sessions; the
	// token itself is the credential.
	api.GET("/certificates/download/:token", d.CertificateHandler.Download)
	api.GET("/attachments/download/:token", d.RequirementHandler.DownloadAttachment)

	// Compatibility endpoint for the original portal client.
	registrar.POST("/legacy", d.LegacyHandler.Dispatch)

	return r
}
