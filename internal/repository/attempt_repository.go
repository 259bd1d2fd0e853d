package repository

import (
	"context"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// AttemptRow is a submitted attempt joined with its user.
type AttemptRow struct {
	AttemptID   string
	UserID      uint
	Name        string
	Username    string
	AvatarURL   string
	Score       int
	MaxScore    int
	DurationSec int
	SubmittedAt time.Time
}

const attemptRowColumns = "attempts.id AS attempt_id, attempts.user_id, " +
	"COALESCE(users.name, '') AS name, COALESCE(users.username, '') AS username, " +
	"COALESCE(users.avatar_url, '') AS avatar_url, attempts.score, attempts.max_score, " +
	"attempts.duration_sec, attempts.submitted_at"

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&attempt).Error
	return &attempt, err
}

func (r *AttemptRepository) CountByUserAndQuiz(ctx context.Context, userID uint, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) ListByUserAndQuiz(ctx context.Context, userID uint, quizID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// MarkSubmitted writes the graded result only while submitted_at is still NULL,
// so a concurrent second submit affects no rows and is rejected.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, attempt *model.Attempt) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND submitted_at IS NULL", attempt.ID).
		Updates(map[string]interface{}{
			"answers":      attempt.Answers,
			"score":        attempt.Score,
			"submitted_at": attempt.SubmittedAt,
			"duration_sec": attempt.DurationSec,
			"is_passed":    attempt.IsPassed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAlreadySubmitted
	}
	return nil
}

// TopForQuiz ranks submitted attempts by score, then faster finish, then earlier submit.
func (r *AttemptRepository) TopForQuiz(ctx context.Context, quizID string, limit int) ([]AttemptRow, error) {
	var rows []AttemptRow
	err := r.submittedRows(ctx, quizID).
		Order("attempts.score DESC, attempts.duration_sec ASC, attempts.submitted_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ExportRows lists every submitted attempt for the quiz, newest first.
func (r *AttemptRepository) ExportRows(ctx context.Context, quizID string) ([]AttemptRow, error) {
	var rows []AttemptRow
	err := r.submittedRows(ctx, quizID).
		Order("attempts.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *AttemptRepository) submittedRows(ctx context.Context, quizID string) *gorm.DB {
	return r.DB.WithContext(ctx).Table("attempts").
		Select(attemptRowColumns).
		Joins("LEFT JOIN users ON users.id = attempts.user_id").
		Where("attempts.quiz_id = ? AND attempts.submitted_at IS NOT NULL AND attempts.deleted_at IS NULL", quizID)
}
