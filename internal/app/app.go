package app

import (
	"context"
	"fellowship_backend/internal/config"
	"fellowship_backend/internal/controller"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/service"
	"fellowship_backend/pkg/configwatcher"
	"fellowship_backend/pkg/database"
	"fellowship_backend/pkg/logger"
	"fellowship_backend/pkg/monitoring"
	"fellowship_backend/pkg/security"
	"fellowship_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config     *config.Config
	ConfigPath string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	settings        *service.QuizSettings
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	quiz        *repository.QuizRepository
	question    *repository.QuestionRepository
	attempt     *repository.AttemptRepository
	leaderboard *repository.LeaderboardRepository
	cache       *repository.LeaderboardCache
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	course      *service.CourseService
	quiz        *service.QuizService
	question    *service.QuestionService
	attempt     *service.AttemptService
	leaderboard *service.LeaderboardService
}

type controllers struct {
	auth        *controller.AuthController
	course      *controller.CourseController
	quiz        *controller.QuizController
	question    *controller.QuestionController
	attempt     *controller.AttemptController
	leaderboard *controller.LeaderboardController
	health      *controller.HealthController
}

// RegisterConfigCallback runs callback with every successfully reloaded config.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		quiz:        repository.NewQuizRepository(db),
		question:    repository.NewQuestionRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		leaderboard: repository.NewLeaderboardRepository(db),
		cache:       repository.NewLeaderboardCache(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg.JWT, cfg.Auth)
	s.course = service.NewCourseService(repos.course)
	s.quiz = service.NewQuizService(repos.quiz, repos.question, repos.course, repos.cache)
	s.question = service.NewQuestionService(repos.quiz, repos.question, s.storage)
	s.attempt = service.NewAttemptService(repos.quiz, repos.question, repos.attempt, repos.user, repos.cache, a.settings)
	s.leaderboard = service.NewLeaderboardService(repos.quiz, repos.user, repos.attempt, repos.leaderboard, repos.cache, a.settings)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		course:      controller.NewCourseController(s.course),
		quiz:        controller.NewQuizController(s.quiz),
		question:    controller.NewQuestionController(s.question, a.settings),
		attempt:     controller.NewAttemptController(s.attempt),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchConfig pushes reloaded quiz tunables into the running services.
func (a *App) watchConfig(ctx context.Context) {
	if a.ConfigPath == "" {
		return
	}
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.settings.Store(cfg.Quiz)
		logger.Log.Info("Quiz settings reloaded",
			zap.Bool("enforceDeadline", cfg.Quiz.EnforceDeadline),
			zap.Duration("leaderboardCacheTTL", cfg.Quiz.LeaderboardCacheTTL))
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(a.ConfigPath, "config.yaml"), func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

// NewApp wires the application. configPath is the directory config was loaded
// from; an empty path disables hot reload.
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate || cfg.MigrateOnly)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		ConfigPath: configPath,
		DB:         db,
		settings:   service.NewQuizSettings(cfg.Quiz),
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, leaderboard cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

func (a *App) Run() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.watchConfig(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
