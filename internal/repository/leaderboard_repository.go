package repository

import (
	"context"

	"gorm.io/gorm"
)

type UserTotalRow struct {
	UserID       uint
	Name         string
	Username     string
	AvatarURL    string
	TotalPoints  int
	AttemptCount int
}

type UserCourseRow struct {
	UserID       uint
	CourseID     uint
	Code         string
	Title        string
	Points       int
	AttemptCount int
}

// LeaderboardRepository aggregates over submitted attempts only.
type LeaderboardRepository struct {
	DB *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db}
}

func (r *LeaderboardRepository) submitted(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Table("attempts").
		Where("attempts.submitted_at IS NOT NULL AND attempts.deleted_at IS NULL")
}

func (r *LeaderboardRepository) UserTotals(ctx context.Context, limit int) ([]UserTotalRow, error) {
	var rows []UserTotalRow
	err := r.submitted(ctx).
		Select("attempts.user_id, users.name, users.username, COALESCE(users.avatar_url, '') AS avatar_url, " +
			"SUM(attempts.score) AS total_points, COUNT(*) AS attempt_count").
		Joins("JOIN users ON users.id = attempts.user_id").
		Group("attempts.user_id, users.name, users.username, users.avatar_url").
		Order("total_points DESC, attempts.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// UserTotal returns zero values for users without submitted attempts.
func (r *LeaderboardRepository) UserTotal(ctx context.Context, userID uint) (UserTotalRow, error) {
	var row UserTotalRow
	err := r.submitted(ctx).
		Select("COALESCE(SUM(attempts.score), 0) AS total_points, COUNT(*) AS attempt_count").
		Where("attempts.user_id = ?", userID).
		Scan(&row).Error
	row.UserID = userID
	return row, err
}

// CourseTotals breaks points down per course. Attempts on deleted quizzes are skipped.
func (r *LeaderboardRepository) CourseTotals(ctx context.Context, userIDs []uint) ([]UserCourseRow, error) {
	var rows []UserCourseRow
	if len(userIDs) == 0 {
		return rows, nil
	}
	err := r.submitted(ctx).
		Select("attempts.user_id, quizzes.course_id, COALESCE(courses.code, '') AS code, " +
			"COALESCE(courses.title, '') AS title, SUM(attempts.score) AS points, COUNT(*) AS attempt_count").
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Joins("LEFT JOIN courses ON courses.id = quizzes.course_id").
		Where("attempts.user_id IN ?", userIDs).
		Group("attempts.user_id, quizzes.course_id, courses.code, courses.title").
		Scan(&rows).Error
	return rows, err
}
