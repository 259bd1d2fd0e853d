package service

import (
	"context"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required,max=20"`
	Title      string `json:"title" validate:"required,max=200"`
	Level      string `json:"level" validate:"max=20"`
	Department string `json:"department" validate:"max=100"`
}

type CourseService struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo}
}

func (s *CourseService) List(ctx context.Context) ([]model.Course, error) {
	return s.CourseRepo.List(ctx)
}

// Create stores the code upper-cased; codes are unique.
func (s *CourseService) Create(ctx context.Context, createdBy uint, req CreateCourseRequest) (*model.Course, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	_, err := s.CourseRepo.FindByCode(ctx, req.Code)
	if err == nil {
		return nil, util.ErrCourseCodeTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	course := &model.Course{
		Code:       req.Code,
		Title:      req.Title,
		Level:      strings.TrimSpace(req.Level),
		Department: strings.TrimSpace(req.Department),
		CreatedBy:  createdBy,
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}
