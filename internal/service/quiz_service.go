package service

import (
	"context"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"fellowship_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPassingScore = 70
	defaultPageLimit    = 20
	maxPageLimit        = 100
)

type CreateQuizRequest struct {
	Title            string   `json:"title" validate:"required,max=200"`
	Description      string   `json:"description"`
	CourseID         uint     `json:"courseId" validate:"required"`
	TimeLimitSec     int      `json:"timeLimitSec" validate:"gte=0"`
	ShuffleQuestions bool     `json:"shuffleQuestions"`
	ShuffleOptions   bool     `json:"shuffleOptions"`
	AttemptLimit     int      `json:"attemptLimit" validate:"gte=0"`
	PassingScore     *int     `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	IsActive         *bool    `json:"isActive"`
	Published        *bool    `json:"published"`
	Sections         []string `json:"sections"`
	Tags             []string `json:"tags"`
}

// UpdateQuizRequest is partial: nil fields are left alone. totalPoints is derived and not accepted.
type UpdateQuizRequest struct {
	Title            *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string  `json:"description"`
	CourseID         *uint    `json:"courseId" validate:"omitempty,gt=0"`
	TimeLimitSec     *int     `json:"timeLimitSec" validate:"omitempty,gte=0"`
	ShuffleQuestions *bool    `json:"shuffleQuestions"`
	ShuffleOptions   *bool    `json:"shuffleOptions"`
	AttemptLimit     *int     `json:"attemptLimit" validate:"omitempty,gte=0"`
	PassingScore     *int     `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	IsActive         *bool    `json:"isActive"`
	Published        *bool    `json:"published"`
	Sections         []string `json:"sections"`
	Tags             []string `json:"tags"`
}

type QuizListQuery struct {
	Query    string
	CourseID uint
	Page     int
	Limit    int
	All      bool
}

type QuizView struct {
	model.Quiz
	QuestionCount int64 `json:"questionCount"`
}

type QuizService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	CourseRepo   *repository.CourseRepository
	Cache        *repository.LeaderboardCache
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	courseRepo *repository.CourseRepository,
	cache *repository.LeaderboardCache,
) *QuizService {
	return &QuizService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		CourseRepo:   courseRepo,
		Cache:        cache,
	}
}

func (s *QuizService) Create(ctx context.Context, createdBy uint, req CreateQuizRequest) (*model.Quiz, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		Title:            req.Title,
		Description:      strings.TrimSpace(req.Description),
		CourseID:         req.CourseID,
		TimeLimitSec:     req.TimeLimitSec,
		ShuffleQuestions: req.ShuffleQuestions,
		ShuffleOptions:   req.ShuffleOptions,
		AttemptLimit:     req.AttemptLimit,
		PassingScore:     defaultPassingScore,
		IsActive:         true,
		Published:        true,
		Sections:         trimAll(req.Sections),
		Tags:             trimAll(req.Tags),
		CreatedBy:        createdBy,
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.Published != nil {
		quiz.Published = *req.Published
	}

	if err := s.QuizRepo.Create(ctx, quiz); err != nil {
		return nil, err
	}
	logger.Log.Info("Quiz created", zap.String("quizID", quiz.ID), zap.Uint("createdBy", createdBy))
	return quiz, nil
}

func (s *QuizService) Update(ctx context.Context, id string, req UpdateQuizRequest) (*model.Quiz, error) {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		req.Title = &t
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	quiz, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CourseID != nil {
		if err := s.requireCourse(ctx, *req.CourseID); err != nil {
			return nil, err
		}
		quiz.CourseID = *req.CourseID
	}
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = strings.TrimSpace(*req.Description)
	}
	if req.TimeLimitSec != nil {
		quiz.TimeLimitSec = *req.TimeLimitSec
	}
	if req.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		quiz.ShuffleOptions = *req.ShuffleOptions
	}
	if req.AttemptLimit != nil {
		quiz.AttemptLimit = *req.AttemptLimit
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.Published != nil {
		quiz.Published = *req.Published
	}
	if req.Sections != nil {
		quiz.Sections = trimAll(req.Sections)
	}
	if req.Tags != nil {
		quiz.Tags = trimAll(req.Tags)
	}

	if err := s.QuizRepo.Save(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// ToggleActive flips isActive and returns the new value.
func (s *QuizService) ToggleActive(ctx context.Context, id string) (bool, error) {
	quiz, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}
	next := !quiz.IsActive
	return next, s.QuizRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": next})
}

// TogglePublished flips published and returns the new value.
func (s *QuizService) TogglePublished(ctx context.Context, id string) (bool, error) {
	quiz, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}
	next := !quiz.Published
	return next, s.QuizRepo.UpdateFields(ctx, id, map[string]interface{}{"published": next})
}

// Delete removes the quiz only; its questions and attempts are kept.
func (s *QuizService) Delete(ctx context.Context, id string) error {
	err := s.QuizRepo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	}
	if err != nil {
		return err
	}
	// course breakdowns skip deleted quizzes
	s.Cache.Invalidate(ctx)
	logger.Log.Info("Quiz deleted", zap.String("quizID", id))
	return nil
}

// Get hides unpublished quizzes from non-staff callers.
func (s *QuizService) Get(ctx context.Context, id string, role model.UserRole) (*QuizView, error) {
	quiz, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.Published && !role.IsStaff() {
		return nil, util.ErrQuizNotFound
	}
	count, err := s.QuestionRepo.CountByQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuizView{Quiz: *quiz, QuestionCount: count}, nil
}

func (s *QuizService) List(ctx context.Context, q QuizListQuery) (*util.PageResponse, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	q.Limit = clampLimit(q.Limit, defaultPageLimit, maxPageLimit)

	quizzes, total, err := s.QuizRepo.List(ctx, repository.QuizFilter{
		Query:         q.Query,
		CourseID:      q.CourseID,
		PublishedOnly: !q.All,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(quizzes))
	for i := range quizzes {
		ids[i] = quizzes[i].ID
	}
	counts, err := s.QuestionRepo.CountByQuizzes(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]QuizView, len(quizzes))
	for i := range quizzes {
		items[i] = QuizView{Quiz: quizzes[i], QuestionCount: counts[quizzes[i].ID]}
	}
	return &util.PageResponse{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (s *QuizService) find(ctx context.Context, id string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

func (s *QuizService) requireCourse(ctx context.Context, courseID uint) error {
	ok, err := s.CourseRepo.Exists(ctx, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrCourseNotFound
	}
	return nil
}
