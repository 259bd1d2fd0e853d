package repository

import (
	"context"
	"fellowship_backend/internal/model"

	"gorm.io/gorm"
)

const importBatchSize = 100

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// ListByQuiz returns the quiz's questions in stored order.
func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("sort_order ASC, created_at ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&question).Error
	return &question, err
}

func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountByQuiz(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

// CountByQuizzes returns question counts keyed by quiz id.
func (r *QuestionRepository) CountByQuizzes(ctx context.Context, quizIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(quizIDs))
	if len(quizIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		QuizID string
		Total  int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Select("quiz_id, COUNT(*) AS total").
		Where("quiz_id IN ?", quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	for _, row := range rows {
		counts[row.QuizID] = row.Total
	}
	return counts, err
}

// Insert appends the questions after the existing ones and recomputes the quiz
// total in the same transaction. It returns the new total.
func (r *QuestionRepository) Insert(ctx context.Context, quizID string, questions []model.Question) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextSortOrder(tx, quizID)
		if err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizID = quizID
			questions[i].SortOrder = next + i
		}
		if len(questions) > 0 {
			if err := tx.CreateInBatches(questions, importBatchSize).Error; err != nil {
				return err
			}
		}
		total, err = recomputeTotalPoints(tx, quizID)
		return err
	})
	return total, err
}

func (r *QuestionRepository) Update(ctx context.Context, question *model.Question) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(question).Error; err != nil {
			return err
		}
		var err error
		total, err = recomputeTotalPoints(tx, question.QuizID)
		return err
	})
	return total, err
}

func (r *QuestionRepository) Delete(ctx context.Context, question *model.Question) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(question).Error; err != nil {
			return err
		}
		var err error
		total, err = recomputeTotalPoints(tx, question.QuizID)
		return err
	})
	return total, err
}

func (r *QuestionRepository) UpdateImage(ctx context.Context, id, url string) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).Where("id = ?", id).Update("image_url", url).Error
}

// Reorder assigns sort_order by position in ids.
func (r *QuestionRepository) Reorder(ctx context.Context, quizID string, ids []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			err := tx.Model(&model.Question{}).
				Where("id = ? AND quiz_id = ?", id, quizID).
				Update("sort_order", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func nextSortOrder(tx *gorm.DB, quizID string) (int, error) {
	var last int64
	err := tx.Model(&model.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&last).Error
	return int(last) + 1, err
}

// recomputeTotalPoints re-aggregates from scratch so the quiz total always equals
// the sum over its live questions.
func recomputeTotalPoints(tx *gorm.DB, quizID string) (int, error) {
	var total int64
	err := tx.Model(&model.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	err = tx.Model(&model.Quiz{}).Where("id = ?", quizID).Update("total_points", total).Error
	return int(total), err
}
