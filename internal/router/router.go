package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/internal/handler"
	"github.com/noah-isme/classroom-grades-api/internal/middleware"
	"github.com/noah-isme/classroom-grades-api/internal/models"
	"github.com/noah-isme/classroom-grades-api/internal/service"
	"github.com/noah-isme/classroom-grades-api/pkg/config"
	"github.com/noah-isme/classroom-grades-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-grades-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-grades-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Structures *handler.GradeStructureHandler
	Scores     *handler.ScoreHandler
	Summaries  *handler.GradeSummaryHandler
	Health     *handler.HealthHandler
}

// New builds the gin engine with the shared middleware chain and every route.
func New(cfg *config.Config, h Handlers, verifier middleware.TokenVerifier, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), middleware.Self)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(verifier), middleware.WithResponseMeta())

	classes := api.Group("/classes/:classId")
	classes.POST("/grade-structures", staff, h.Structures.Activate)
	classes.GET("/grade-structures", h.Structures.List)
	classes.GET("/grade-structures/active", h.Structures.Active)
	classes.GET("/students/:studentId/grade-summary", staffOrSelf, h.Summaries.StudentSummary)
	classes.GET("/gradebook", staff, h.Summaries.Gradebook)
	classes.GET("/gradebook/export", staff, h.Summaries.Export)

	api.GET("/grade-structures/:id", h.Structures.Get)

	assignments := api.Group("/assignments/:assignmentId")
	assignments.PUT("/scores", staff, h.Scores.Record)
	assignments.GET("/scores", staff, h.Scores.List)

	return r
}
