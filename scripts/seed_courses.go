// Seeds the course catalog from a YAML file. Existing codes are left untouched.
//
// Usage: go run scripts/seed_courses.go [-config configs] [-file scripts/courses.yaml]

package main

import (
	"context"
	"errors"
	"fellowship_backend/internal/config"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/service"
	"fellowship_backend/internal/util"
	"fellowship_backend/pkg/database"
	"fellowship_backend/pkg/logger"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Courses []service.CreateCourseRequest `yaml:"courses"`
}

func main() {
	configPath := flag.String("config", "configs", "directory containing config.yaml")
	file := flag.String("file", "scripts/courses.yaml", "course list")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("Failed to parse %s: %v", *file, err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	svc := service.NewCourseService(repository.NewCourseRepository(db))
	ctx := context.Background()
	created := 0
	for _, req := range seed.Courses {
		course, err := svc.Create(ctx, 0, req)
		switch {
		case errors.Is(err, util.ErrCourseCodeTaken):
			logger.Log.Info("Course exists, skipped", zap.String("code", req.Code))
		case err != nil:
			logger.Log.Error("Course rejected", zap.String("code", req.Code), zap.Error(err))
		default:
			created++
			logger.Log.Info("Course created", zap.String("code", course.Code), zap.Uint("id", course.ID))
		}
	}

	var total int64
	db.Model(&model.Course{}).Count(&total)
	log.Printf("Seeded %d courses, %d in catalog", created, total)
}
