package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Auth      AuthConfig `mapstructure:"auth"`
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Quiz      QuizConfig      `mapstructure:"quiz"`

	// set from command line flags
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig: AttemptPerMinute applies per signed-in user to start and submit.
type RateLimitConfig struct {
	MaxRequests      int `mapstructure:"max_requests"`
	WindowMinutes    int `mapstructure:"window_minutes"`
	AuthPerMinute    int `mapstructure:"auth_per_minute"`
	AttemptPerMinute int `mapstructure:"attempt_per_minute"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// AuthConfig replaces ambient environment lookups for sign-up codes.
type AuthConfig struct {
	AdminSignupCode     string `mapstructure:"admin_signup_code"`
	ExecSignupCode      string `mapstructure:"exec_signup_code"`
	BootstrapFirstAdmin bool   `mapstructure:"bootstrap_first_admin"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QuizConfig holds the tunables that can be hot-reloaded.
type QuizConfig struct {
	QuizLeaderboardDefault   int           `mapstructure:"quiz_leaderboard_default"`
	QuizLeaderboardMax       int           `mapstructure:"quiz_leaderboard_max"`
	GlobalLeaderboardDefault int           `mapstructure:"global_leaderboard_default"`
	GlobalLeaderboardMax     int           `mapstructure:"global_leaderboard_max"`
	EnforceDeadline          bool          `mapstructure:"enforce_deadline"`
	DeadlineGraceSec         int           `mapstructure:"deadline_grace_sec"`
	MaxCSVBytes              int64         `mapstructure:"max_csv_bytes"`
	LeaderboardCacheTTL      time.Duration `mapstructure:"leaderboard_cache_ttl"`
}

func DefaultQuizConfig() QuizConfig {
	return QuizConfig{
		QuizLeaderboardDefault:   20,
		QuizLeaderboardMax:       100,
		GlobalLeaderboardDefault: 50,
		GlobalLeaderboardMax:     200,
		DeadlineGraceSec:         30,
		MaxCSVBytes:              5 << 20,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultQuizConfig()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("auth.bootstrap_first_admin", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("tracing.service_name", "fellowship-backend")
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.auth_per_minute", 20)
	v.SetDefault("rate_limit.attempt_per_minute", 30)
	v.SetDefault("quiz.quiz_leaderboard_default", d.QuizLeaderboardDefault)
	v.SetDefault("quiz.quiz_leaderboard_max", d.QuizLeaderboardMax)
	v.SetDefault("quiz.global_leaderboard_default", d.GlobalLeaderboardDefault)
	v.SetDefault("quiz.global_leaderboard_max", d.GlobalLeaderboardMax)
	v.SetDefault("quiz.enforce_deadline", d.EnforceDeadline)
	v.SetDefault("quiz.deadline_grace_sec", d.DeadlineGraceSec)
	v.SetDefault("quiz.max_csv_bytes", d.MaxCSVBytes)
	v.SetDefault("quiz.leaderboard_cache_ttl", d.LeaderboardCacheTTL)
}

func bindEnv(v *viper.Viper) {
	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Auth
	v.BindEnv("auth.admin_signup_code", "ADMIN_SIGNUP_CODE")
	v.BindEnv("auth.exec_signup_code", "EXEC_SIGNUP_CODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Quiz
	v.BindEnv("quiz.enforce_deadline", "QUIZ_ENFORCE_DEADLINE")
}

// LoadConfig reads config.yaml from the given directory and applies env overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FELLOWSHIP")
	v.AutomaticEnv()
	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}
