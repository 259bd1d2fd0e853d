package service

import (
	"context"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"fellowship_backend/pkg/logger"
	"fellowship_backend/pkg/monitoring"
	"fellowship_backend/pkg/tracing"
	"fmt"
	"io"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ImportResult struct {
	OK          bool       `json:"ok"`
	DryRun      bool       `json:"dryRun"`
	RowCount    int        `json:"rowCount"`
	ValidRows   int        `json:"validRows"`
	Errors      []RowError `json:"errors"`
	Created     int        `json:"created"`
	TotalPoints int        `json:"totalPoints"`
}

type QuestionRequest struct {
	Text         string   `json:"text" validate:"required"`
	Options      []string `json:"options" validate:"min=2,max=5"`
	CorrectIndex int      `json:"correctIndex" validate:"gte=0"`
	Points       *int     `json:"points" validate:"omitempty,gte=0"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Section      string   `json:"section" validate:"max=100"`
	Tags         []string `json:"tags"`
	Explanation  string   `json:"explanation"`
}

type ReorderRequest struct {
	QuestionIDs []string `json:"questionIds" validate:"required,min=1"`
}

type QuestionService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	Storage      *StorageService
}

func NewQuestionService(quizRepo *repository.QuizRepository, questionRepo *repository.QuestionRepository, storage *StorageService) *QuestionService {
	return &QuestionService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		Storage:      storage,
	}
}

func (s *QuestionService) requireQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

// ImportCSV validates every row and, unless dryRun, inserts all of them or none.
// A commit with row errors returns the result together with ErrCSVValidation.
func (s *QuestionService) ImportCSV(ctx context.Context, quizID string, r io.Reader, dryRun bool) (*ImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionService.ImportCSV",
		attribute.String("quiz.id", quizID), attribute.Bool("dry_run", dryRun))
	defer span.End()

	if _, err := s.requireQuiz(ctx, quizID); err != nil {
		return nil, err
	}

	parsed, err := ParseQuestionCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		OK:        len(parsed.Errors) == 0,
		DryRun:    dryRun,
		RowCount:  parsed.RowCount,
		ValidRows: len(parsed.Questions),
		Errors:    parsed.Errors,
	}
	if result.Errors == nil {
		result.Errors = []RowError{}
	}
	monitoring.QuestionsImported.WithLabelValues("rejected").Add(float64(len(parsed.Errors)))

	if dryRun {
		return result, nil
	}
	if !result.OK {
		return result, util.ErrCSVValidation
	}

	total, err := s.QuestionRepo.Insert(ctx, quizID, parsed.Questions)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	result.Created = len(parsed.Questions)
	result.TotalPoints = total
	monitoring.QuestionsImported.WithLabelValues("created").Add(float64(result.Created))

	logger.Log.Info("Questions imported",
		zap.String("quizID", quizID),
		zap.Int("created", result.Created),
		zap.Int("totalPoints", total))
	return result, nil
}

func (s *QuestionService) List(ctx context.Context, quizID string) ([]model.Question, error) {
	if _, err := s.requireQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.QuestionRepo.ListByQuiz(ctx, quizID)
}

func (s *QuestionService) Create(ctx context.Context, quizID string, req QuestionRequest) (*model.Question, error) {
	if _, err := s.requireQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	q := &model.Question{}
	if err := applyQuestionRequest(q, req); err != nil {
		return nil, err
	}
	questions := []model.Question{*q}
	if _, err := s.QuestionRepo.Insert(ctx, quizID, questions); err != nil {
		return nil, err
	}
	return &questions[0], nil
}

func (s *QuestionService) Update(ctx context.Context, questionID string, req QuestionRequest) (*model.Question, error) {
	q, err := s.find(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if err := applyQuestionRequest(q, req); err != nil {
		return nil, err
	}
	if _, err := s.QuestionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, questionID string) error {
	q, err := s.find(ctx, questionID)
	if err != nil {
		return err
	}
	_, err = s.QuestionRepo.Delete(ctx, q)
	return err
}

// Reorder requires the exact set of the quiz's question ids.
func (s *QuestionService) Reorder(ctx context.Context, quizID string, req ReorderRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	questions, err := s.List(ctx, quizID)
	if err != nil {
		return err
	}
	if len(questions) != len(req.QuestionIDs) {
		return util.ErrInvalidReorder
	}
	existing := make(map[string]bool, len(questions))
	for _, q := range questions {
		existing[q.ID] = true
	}
	for _, id := range req.QuestionIDs {
		if !existing[id] {
			return util.ErrInvalidReorder
		}
		delete(existing, id)
	}
	return s.QuestionRepo.Reorder(ctx, quizID, req.QuestionIDs)
}

// UploadImage stores an image attachment for the question and records its URL.
func (s *QuestionService) UploadImage(ctx context.Context, questionID string, file io.ReadSeeker, size int64) (string, error) {
	q, err := s.find(ctx, questionID)
	if err != nil {
		return "", err
	}

	mimeType, err := util.ValidateMimeType(file, util.AllowedImageTypes)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	key := path.Join("questions", q.QuizID, q.ID+util.ExtensionFor(mimeType))
	url, err := s.Storage.Upload(ctx, key, file, size, mimeType)
	if err != nil {
		return "", fmt.Errorf("upload question image: %w", err)
	}
	if err := s.QuestionRepo.UpdateImage(ctx, q.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *QuestionService) find(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.QuestionRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

func applyQuestionRequest(q *model.Question, req QuestionRequest) error {
	req.Text = strings.TrimSpace(req.Text)
	req.Options = trimAll(req.Options)
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.CorrectIndex >= len(req.Options) {
		return invalid("correctIndex must be between 0 and %d", len(req.Options)-1)
	}

	q.Text = req.Text
	q.Options = req.Options
	q.CorrectIndex = req.CorrectIndex
	q.Points = 1
	if req.Points != nil {
		q.Points = *req.Points
	}
	q.Difficulty = model.Medium
	if req.Difficulty != "" {
		q.Difficulty = model.Difficulty(req.Difficulty)
	}
	q.Section = strings.TrimSpace(req.Section)
	q.Tags = trimAll(req.Tags)
	q.Explanation = strings.TrimSpace(req.Explanation)
	return nil
}
