// @title Fellowship Portal API
// @version 1.0
// @description Quiz engine for the fellowship portal: question banks, timed attempts, leaderboards.

// @contact.name Fellowship tech team

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"fellowship_backend/internal/app"
	"fellowship_backend/internal/config"
	"fellowship_backend/pkg/logger"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
)

func main() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "configs"
	}
	configPath := flag.String("config", defaultPath, "directory containing config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "run database migrations on start even in release mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	application, err := app.NewApp(cfg, *configPath)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if *migrateOnly {
		logger.Log.Info("Database migration finished")
		return
	}

	application.Run()
}
