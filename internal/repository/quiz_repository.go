package repository

import (
	"context"
	"fellowship_backend/internal/model"
	"strings"

	"gorm.io/gorm"
)

type QuizFilter struct {
	Query         string
	CourseID      uint
	PublishedOnly bool
	Page          int
	Limit         int
}

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&quiz).Error
	return &quiz, err
}

// Save writes every column; callers must have loaded the row first.
func (r *QuizRepository) Save(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Save(quiz).Error
}

func (r *QuizRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Quiz{}).Where("id = ?", id).Updates(fields).Error
}

// Delete soft-deletes the quiz row only. Questions and attempts stay.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Quiz{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *QuizRepository) List(ctx context.Context, f QuizFilter) ([]model.Quiz, int64, error) {
	db := r.DB.WithContext(ctx).Model(&model.Quiz{})
	if f.PublishedOnly {
		db = db.Where("published = ?", true)
	}
	if f.CourseID != 0 {
		db = db.Where("course_id = ?", f.CourseID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	err := db.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&quizzes).Error
	return quizzes, total, err
}
