package app

import (
	"fellowship_backend/docs"
	"fellowship_backend/internal/config"
	"fellowship_backend/internal/middleware"
	"fellowship_backend/internal/model"
	"fellowship_backend/pkg/monitoring"
	"fellowship_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.GET("/health", c.health.HealthCheck)

	a.registerAuthRoutes(api, c, cfg)
	a.registerCourseRoutes(api, c, cfg)
	a.registerQuizRoutes(api, c, cfg)
}

func (a *App) registerAuthRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	auth := api.Group("/auth")
	{
		limited := auth.Group("")
		limited.Use(security.RateLimiter(cfg.RateLimit.AuthPerMinute, time.Minute))
		limited.POST("/register", c.auth.Register)
		limited.POST("/login", c.auth.Login)

		authorized := auth.Group("")
		authorized.Use(middleware.AuthMiddleware(cfg))
		authorized.GET("/me", c.auth.Me)
		authorized.POST("/promote", c.auth.Promote)
	}
}

func (a *App) registerCourseRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	api.GET("/courses", c.course.List)
	api.POST("/courses", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), c.course.Create)
}

func (a *App) registerQuizRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	quizzes := api.Group("/quizzes")

	// public
	quizzes.GET("", c.quiz.List)
	quizzes.GET("/:id", middleware.OptionalAuth(cfg), c.quiz.Get)
	quizzes.GET("/:id/leaderboard", c.leaderboard.Quiz)
	quizzes.GET("/leaderboard/global", c.leaderboard.Global)
	quizzes.GET("/leaderboard/user/:userId", c.leaderboard.User)

	// any signed-in user
	member := quizzes.Group("")
	member.Use(middleware.AuthMiddleware(cfg))
	{
		attemptLimit := security.RateLimitBy(cfg.RateLimit.AttemptPerMinute, time.Minute, middleware.UserRateKey)
		member.POST("/:id/start", attemptLimit, c.attempt.Start)
		member.GET("/:id/attempts/mine", c.attempt.ListMine)
		member.POST("/attempts/:attemptId/submit", attemptLimit, c.attempt.Submit)
		member.GET("/attempts/:attemptId", c.attempt.Review)
	}

	staff := quizzes.Group("")
	staff.Use(middleware.AuthMiddleware(cfg), middleware.StaffOnly())
	{
		staff.GET("/admin/all", c.quiz.ListAll)
		staff.POST("", c.quiz.Create)
		staff.PUT("/:id", c.quiz.Update)
		staff.PATCH("/:id/active", c.quiz.ToggleActive)
		staff.PATCH("/:id/publish", c.quiz.TogglePublished)

		staff.POST("/:id/questions/csv", c.question.ImportCSV)
		staff.GET("/:id/questions", c.question.List)
		staff.POST("/:id/questions", c.question.Create)
		staff.PUT("/:id/questions/reorder", c.question.Reorder)
		staff.PUT("/questions/:questionId", c.question.Update)
		staff.POST("/questions/:questionId/image", c.question.UploadImage)

		staff.GET("/:id/attempts/export", c.attempt.Export)
	}

	admin := quizzes.Group("")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.DELETE("/:id", c.quiz.Delete)
		admin.DELETE("/questions/:questionId", c.question.Delete)
	}
}
