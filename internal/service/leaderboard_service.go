package service

import (
	"context"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

type QuizLeaderboardEntry struct {
	Rank        int               `json:"rank"`
	AttemptID   string            `json:"attemptId"`
	User        model.UserSummary `json:"user"`
	Score       int               `json:"score"`
	MaxScore    int               `json:"maxScore"`
	DurationSec int               `json:"durationSec"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

type CourseScore struct {
	ID       uint   `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Points   int    `json:"points"`
	Attempts int    `json:"attempts"`
}

type GlobalLeaderboardEntry struct {
	Rank        int               `json:"rank"`
	User        model.UserSummary `json:"user"`
	TotalPoints int               `json:"totalPoints"`
	Attempts    int               `json:"attempts"`
	TopCourse   *CourseScore      `json:"topCourse"`
}

type UserLeaderboardDetail struct {
	User        model.UserSummary `json:"user"`
	TotalPoints int               `json:"totalPoints"`
	Attempts    int               `json:"attempts"`
	Courses     []CourseScore     `json:"courses"`
}

// LeaderboardService derives rankings from submitted attempts on every call,
// optionally through the redis cache.
type LeaderboardService struct {
	QuizRepo        *repository.QuizRepository
	UserRepo        *repository.UserRepository
	AttemptRepo     *repository.AttemptRepository
	LeaderboardRepo *repository.LeaderboardRepository
	Cache           *repository.LeaderboardCache
	Settings        *QuizSettings
}

func NewLeaderboardService(
	quizRepo *repository.QuizRepository,
	userRepo *repository.UserRepository,
	attemptRepo *repository.AttemptRepository,
	leaderboardRepo *repository.LeaderboardRepository,
	cache *repository.LeaderboardCache,
	settings *QuizSettings,
) *LeaderboardService {
	return &LeaderboardService{
		QuizRepo:        quizRepo,
		UserRepo:        userRepo,
		AttemptRepo:     attemptRepo,
		LeaderboardRepo: leaderboardRepo,
		Cache:           cache,
		Settings:        settings,
	}
}

func (s *LeaderboardService) ForQuiz(ctx context.Context, quizID string, limit int) ([]QuizLeaderboardEntry, error) {
	cfg := s.Settings.Load()
	limit = clampLimit(limit, cfg.QuizLeaderboardDefault, cfg.QuizLeaderboardMax)

	if _, err := s.QuizRepo.FindByID(ctx, quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	cacheName := fmt.Sprintf("quiz:%s:%d", quizID, limit)
	var entries []QuizLeaderboardEntry
	cacheKey, hit := s.Cache.Get(ctx, cacheName, &entries)
	if hit {
		return entries, nil
	}

	rows, err := s.AttemptRepo.TopForQuiz(ctx, quizID, limit)
	if err != nil {
		return nil, err
	}
	entries = make([]QuizLeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = QuizLeaderboardEntry{
			Rank:        i + 1,
			AttemptID:   r.AttemptID,
			User:        model.UserSummary{ID: r.UserID, Name: r.Name, Username: r.Username, AvatarURL: r.AvatarURL},
			Score:       r.Score,
			MaxScore:    r.MaxScore,
			DurationSec: r.DurationSec,
			SubmittedAt: r.SubmittedAt,
		}
	}

	s.Cache.Set(ctx, cacheKey, entries, cfg.LeaderboardCacheTTL)
	return entries, nil
}

func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]GlobalLeaderboardEntry, error) {
	cfg := s.Settings.Load()
	limit = clampLimit(limit, cfg.GlobalLeaderboardDefault, cfg.GlobalLeaderboardMax)

	cacheName := fmt.Sprintf("global:%d", limit)
	var entries []GlobalLeaderboardEntry
	cacheKey, hit := s.Cache.Get(ctx, cacheName, &entries)
	if hit {
		return entries, nil
	}

	totals, err := s.LeaderboardRepo.UserTotals(ctx, limit)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, len(totals))
	for i, t := range totals {
		userIDs[i] = t.UserID
	}
	courseRows, err := s.LeaderboardRepo.CourseTotals(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uint][]CourseScore, len(userIDs))
	for _, r := range courseRows {
		byUser[r.UserID] = append(byUser[r.UserID], courseScore(r))
	}

	entries = make([]GlobalLeaderboardEntry, len(totals))
	for i, t := range totals {
		entries[i] = GlobalLeaderboardEntry{
			Rank:        i + 1,
			User:        model.UserSummary{ID: t.UserID, Name: t.Name, Username: t.Username, AvatarURL: t.AvatarURL},
			TotalPoints: t.TotalPoints,
			Attempts:    t.AttemptCount,
			TopCourse:   topCourse(byUser[t.UserID]),
		}
	}

	s.Cache.Set(ctx, cacheKey, entries, cfg.LeaderboardCacheTTL)
	return entries, nil
}

func (s *LeaderboardService) ForUser(ctx context.Context, userID uint) (*UserLeaderboardDetail, error) {
	cfg := s.Settings.Load()
	cacheName := fmt.Sprintf("user:%d", userID)
	var detail UserLeaderboardDetail
	cacheKey, hit := s.Cache.Get(ctx, cacheName, &detail)
	if hit {
		return &detail, nil
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	total, err := s.LeaderboardRepo.UserTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.LeaderboardRepo.CourseTotals(ctx, []uint{userID})
	if err != nil {
		return nil, err
	}
	courses := make([]CourseScore, len(rows))
	for i, r := range rows {
		courses[i] = courseScore(r)
	}
	sortCourses(courses)

	detail = UserLeaderboardDetail{
		User:        user.Summary(),
		TotalPoints: total.TotalPoints,
		Attempts:    total.AttemptCount,
		Courses:     courses,
	}
	s.Cache.Set(ctx, cacheKey, detail, cfg.LeaderboardCacheTTL)
	return &detail, nil
}

func courseScore(r repository.UserCourseRow) CourseScore {
	return CourseScore{ID: r.CourseID, Code: r.Code, Title: r.Title, Points: r.Points, Attempts: r.AttemptCount}
}

// sortCourses orders by points descending, then course id ascending.
func sortCourses(courses []CourseScore) {
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Points != courses[j].Points {
			return courses[i].Points > courses[j].Points
		}
		return courses[i].ID < courses[j].ID
	})
}

// topCourse picks the highest-scoring course; nil when the user has none.
func topCourse(courses []CourseScore) *CourseScore {
	if len(courses) == 0 {
		return nil
	}
	best := courses[0]
	for _, c := range courses[1:] {
		if c.Points > best.Points || (c.Points == best.Points && c.ID < best.ID) {
			best = c
		}
	}
	return &best
}
