package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"fellowship_backend/internal/config"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection would get its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	ctx context.Context
	db  *gorm.DB

	users     *repository.UserRepository
	courses   *repository.CourseRepository
	quizzes   *repository.QuizRepository
	questions *repository.QuestionRepository
	attempts  *repository.AttemptRepository

	settings    *QuizSettings
	questionSvc *QuestionService
	quizSvc     *QuizService
	attemptSvc  *AttemptService
	boardSvc    *LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		ctx:       context.Background(),
		db:        db,
		users:     repository.NewUserRepository(db),
		courses:   repository.NewCourseRepository(db),
		quizzes:   repository.NewQuizRepository(db),
		questions: repository.NewQuestionRepository(db),
		attempts:  repository.NewAttemptRepository(db),
		settings:  NewQuizSettings(config.DefaultQuizConfig()),
	}
	storage := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	cache := repository.NewLeaderboardCache(nil)

	f.questionSvc = NewQuestionService(f.quizzes, f.questions, storage)
	f.quizSvc = NewQuizService(f.quizzes, f.questions, f.courses, cache)
	f.attemptSvc = NewAttemptService(f.quizzes, f.questions, f.attempts, f.users, cache, f.settings)
	f.boardSvc = NewLeaderboardService(f.quizzes, f.users, f.attempts, repository.NewLeaderboardRepository(db), cache, f.settings)
	return f
}

func (f *fixture) user(t *testing.T, username string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Username: username,
		Email:    username + "@fellowship.test",
		Password: "x",
		Role:     role,
	}
	require.NoError(t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) course(t *testing.T, code string) *model.Course {
	t.Helper()
	c := &model.Course{Code: code, Title: code + " course"}
	require.NoError(t, f.courses.Create(f.ctx, c))
	return c
}

func (f *fixture) quiz(t *testing.T, courseID uint, mutate func(q *model.Quiz)) *model.Quiz {
	t.Helper()
	q := &model.Quiz{
		Title:        "Quiz",
		CourseID:     courseID,
		PassingScore: 70,
		IsActive:     true,
		Published:    true,
	}
	if mutate != nil {
		mutate(q)
	}
	require.NoError(t, f.quizzes.Create(f.ctx, q))
	return q
}

// importCSV commits a CSV and fails the test on any error.
func (f *fixture) importCSV(t *testing.T, quizID, body string) *ImportResult {
	t.Helper()
	res, err := f.questionSvc.ImportCSV(f.ctx, quizID, strings.NewReader(body), false)
	require.NoError(t, err)
	return res
}

// submitted inserts a finished attempt directly.
func (f *fixture) submitted(t *testing.T, userID uint, quizID string, score, duration int, at time.Time) *model.Attempt {
	t.Helper()
	a := &model.Attempt{
		UserID:      userID,
		QuizID:      quizID,
		Score:       score,
		MaxScore:    10,
		StartedAt:   at.Add(-time.Duration(duration) * time.Second),
		SubmittedAt: &at,
		DurationSec: duration,
	}
	require.NoError(t, f.attempts.Create(f.ctx, a))
	return a
}

// reverseShuffle is a deterministic stand-in for rand.Shuffle.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func intPtr(v int) *int { return &v }

const threeQuestionCSV = "question,text,optionA,optionB,optionC,optionD,optionE,correct,points,explanation,tags,difficulty,section\n" +
	"Q1,,Red,Blue,Green,,,B,1,Blue it is,colors,easy,Basics\n" +
	"Q2,,One,Two,Three,,,A,1,,numbers,,Basics\n" +
	"Q3,,Cat,Dog,Bird,Fish,,C,1,,animals,hard,Advanced\n"
