package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/repository"
	"fellowship_backend/internal/util"
	"fellowship_backend/pkg/logger"
	"fellowship_backend/pkg/monitoring"
	"fellowship_backend/pkg/tracing"
	"io"
	"math/rand"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

var exportHeader = []string{"attemptId", "userId", "name", "username", "score", "maxScore", "durationSec", "submittedAt"}

type StartAttemptRequest struct {
	QuestionCount int `json:"questionCount"`
}

// PresentedQuestion is what a member sees; it never carries the answer.
type PresentedQuestion struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	Options    []string         `json:"options"`
	Points     int              `json:"points"`
	Difficulty model.Difficulty `json:"difficulty"`
	Section    string           `json:"section,omitempty"`
	ImageURL   string           `json:"imageUrl,omitempty"`
}

type StartedAttempt struct {
	AttemptID    string              `json:"attemptId"`
	QuizID       string              `json:"quizId"`
	Title        string              `json:"title"`
	TimeLimitSec int                 `json:"timeLimitSec"`
	StartedAt    time.Time           `json:"startedAt"`
	Deadline     *time.Time          `json:"deadline"`
	MaxScore     int                 `json:"maxScore"`
	Questions    []PresentedQuestion `json:"questions"`
}

// SubmittedAnswer carries a displayed option index; nil means unanswered.
type SubmittedAnswer struct {
	QuestionID    string `json:"question"`
	SelectedIndex *int   `json:"selectedIndex"`
}

type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers"`
}

type SubmitResult struct {
	AttemptID   string    `json:"attemptId"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"maxScore"`
	DurationSec int       `json:"durationSec"`
	IsPassed    bool      `json:"isPassed"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type ReviewItem struct {
	QuestionID    string   `json:"questionId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectIndex  *int     `json:"correctIndex"`
	SelectedIndex int      `json:"selectedIndex"`
	IsCorrect     bool     `json:"isCorrect"`
	EarnedPoints  int      `json:"earnedPoints"`
	Explanation   string   `json:"explanation,omitempty"`
}

type AttemptReview struct {
	AttemptID    string              `json:"attemptId"`
	QuizID       string              `json:"quizId"`
	QuizTitle    string              `json:"quizTitle"`
	TimeLimitSec int                 `json:"timeLimitSec"`
	User         model.UserSummary   `json:"user"`
	Status       model.AttemptStatus `json:"status"`
	Score        int                 `json:"score"`
	MaxScore     int                 `json:"maxScore"`
	DurationSec  int                 `json:"durationSec"`
	IsPassed     bool                `json:"isPassed"`
	StartedAt    time.Time           `json:"startedAt"`
	Deadline     *time.Time          `json:"deadline,omitempty"`
	SubmittedAt  *time.Time          `json:"submittedAt,omitempty"`
	Items        []ReviewItem        `json:"items"`
}

type AttemptSummary struct {
	AttemptID   string              `json:"attemptId"`
	Status      model.AttemptStatus `json:"status"`
	Score       int                 `json:"score"`
	MaxScore    int                 `json:"maxScore"`
	DurationSec int                 `json:"durationSec"`
	IsPassed    bool                `json:"isPassed"`
	StartedAt   time.Time           `json:"startedAt"`
	SubmittedAt *time.Time          `json:"submittedAt,omitempty"`
}

type AttemptService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	UserRepo     *repository.UserRepository
	Cache        *repository.LeaderboardCache
	Settings     *QuizSettings

	Shuffle ShuffleFunc
	Now     func() time.Time
}

func NewAttemptService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	userRepo *repository.UserRepository,
	cache *repository.LeaderboardCache,
	settings *QuizSettings,
) *AttemptService {
	return &AttemptService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		UserRepo:     userRepo,
		Cache:        cache,
		Settings:     settings,
		Shuffle:      rand.Shuffle,
		Now:          time.Now,
	}
}

// Start selects and orders the questions for a new attempt and persists the snapshot.
func (s *AttemptService) Start(ctx context.Context, userID uint, quizID string, req StartAttemptRequest) (*StartedAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.Start", attribute.String("quiz.id", quizID))
	defer span.End()

	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !(quiz.IsActive && quiz.Published)) {
		return nil, util.ErrQuizUnavailable
	}
	if err != nil {
		return nil, err
	}

	if quiz.AttemptLimit > 0 {
		used, err := s.AttemptRepo.CountByUserAndQuiz(ctx, userID, quizID)
		if err != nil {
			return nil, err
		}
		if used >= int64(quiz.AttemptLimit) {
			return nil, util.ErrAttemptLimitReached
		}
	}

	questions, err := s.QuestionRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNoQuestions
	}

	selected := s.selectQuestions(questions, quiz.ShuffleQuestions, req.QuestionCount)

	now := s.Now()
	order := make([]string, 0, len(selected))
	optionOrders := model.OptionOrders{}
	payload := make([]PresentedQuestion, 0, len(selected))
	maxScore := 0
	for _, q := range selected {
		options := append([]string(nil), q.Options...)
		if quiz.ShuffleOptions {
			perm := s.permutation(len(q.Options))
			optionOrders[q.ID] = perm
			for displayed, original := range perm {
				options[displayed] = q.Options[original]
			}
		}
		order = append(order, q.ID)
		maxScore += q.Points
		payload = append(payload, PresentedQuestion{
			ID:         q.ID,
			Text:       q.Text,
			Options:    options,
			Points:     q.Points,
			Difficulty: q.Difficulty,
			Section:    q.Section,
			ImageURL:   q.ImageURL,
		})
	}

	attempt := &model.Attempt{
		UserID:        userID,
		QuizID:        quizID,
		QuestionOrder: order,
		OptionOrders:  datatypes.NewJSONType(optionOrders),
		Answers:       []model.AttemptAnswer{},
		MaxScore:      maxScore,
		StartedAt:     now,
	}
	if quiz.Timed() {
		deadline := now.Add(time.Duration(quiz.TimeLimitSec) * time.Second)
		attempt.Deadline = &deadline
	}

	if err := s.AttemptRepo.Create(ctx, attempt); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("Attempt started",
		zap.String("attemptID", attempt.ID),
		zap.String("quizID", quizID),
		zap.Uint("userID", userID),
		zap.Int("questions", len(order)))

	return &StartedAttempt{
		AttemptID:    attempt.ID,
		QuizID:       quizID,
		Title:        quiz.Title,
		TimeLimitSec: quiz.TimeLimitSec,
		StartedAt:    attempt.StartedAt,
		Deadline:     attempt.Deadline,
		MaxScore:     maxScore,
		Questions:    payload,
	}, nil
}

// selectQuestions optionally shuffles a copy of the pool and takes a prefix.
// A count outside 1..len(pool) means the whole pool.
func (s *AttemptService) selectQuestions(pool []model.Question, shuffle bool, count int) []model.Question {
	picked := append([]model.Question(nil), pool...)
	if shuffle {
		s.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	}
	if count <= 0 || count > len(picked) {
		count = len(picked)
	}
	return picked[:count]
}

// permutation returns displayed position -> original option index.
func (s *AttemptService) permutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	s.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm
}

// Submit grades the attempt once. Only questions from the attempt's own
// snapshot are scored; unknown or repeated question ids are skipped.
func (s *AttemptService) Submit(ctx context.Context, userID uint, attemptID string, req SubmitAttemptRequest) (*SubmitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.Submit", attribute.String("attempt.id", attemptID))
	defer span.End()

	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.SubmittedAt != nil {
		monitoring.AttemptsSubmitted.WithLabelValues("duplicate").Inc()
		return nil, util.ErrAlreadySubmitted
	}

	now := s.Now()
	settings := s.Settings.Load()
	if settings.EnforceDeadline && attempt.Deadline != nil {
		grace := time.Duration(settings.DeadlineGraceSec) * time.Second
		if now.After(attempt.Deadline.Add(grace)) {
			monitoring.AttemptsSubmitted.WithLabelValues("expired").Inc()
			return nil, util.ErrAttemptExpired
		}
	}

	questions, err := s.QuestionRepo.FindByIDs(ctx, attempt.QuestionOrder)
	if err != nil {
		return nil, err
	}
	answers, score := gradeAnswers(attempt, questions, req.Answers)

	duration := int(now.Sub(attempt.StartedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}

	passed := false
	if quiz, err := s.QuizRepo.FindByID(ctx, attempt.QuizID); err == nil {
		passed = quiz.Passed(score, attempt.MaxScore)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	attempt.Answers = answers
	attempt.Score = score
	attempt.SubmittedAt = &now
	attempt.DurationSec = duration
	attempt.IsPassed = passed

	if err := s.AttemptRepo.MarkSubmitted(ctx, attempt); err != nil {
		if errors.Is(err, util.ErrAlreadySubmitted) {
			monitoring.AttemptsSubmitted.WithLabelValues("duplicate").Inc()
		}
		tracing.RecordError(span, err)
		return nil, err
	}

	s.Cache.Invalidate(ctx)
	monitoring.AttemptsSubmitted.WithLabelValues("accepted").Inc()
	if attempt.MaxScore > 0 {
		monitoring.AttemptScoreRatio.Observe(float64(score) / float64(attempt.MaxScore))
	}
	logger.Log.Info("Attempt submitted",
		zap.String("attemptID", attempt.ID),
		zap.Uint("userID", userID),
		zap.Int("score", score),
		zap.Int("maxScore", attempt.MaxScore),
		zap.Int("durationSec", duration))

	return &SubmitResult{
		AttemptID:   attempt.ID,
		Score:       score,
		MaxScore:    attempt.MaxScore,
		DurationSec: duration,
		IsPassed:    passed,
		SubmittedAt: now,
	}, nil
}

// gradeAnswers scores all-or-nothing per question. Selected indexes are in
// displayed order and are mapped back through the attempt's option permutation.
func gradeAnswers(attempt *model.Attempt, questions []model.Question, submitted []SubmittedAnswer) ([]model.AttemptAnswer, int) {
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	seen := make(map[string]bool, len(submitted))
	answers := make([]model.AttemptAnswer, 0, len(submitted))
	score := 0
	for _, a := range submitted {
		q, ok := byID[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true

		selected := -1
		if a.SelectedIndex != nil {
			selected = *a.SelectedIndex
		}
		original := -1
		if selected >= 0 && selected < len(q.Options) {
			original = attempt.DisplayOrder(q.ID, len(q.Options))[selected]
		}

		answer := model.AttemptAnswer{QuestionID: q.ID, SelectedIndex: selected}
		if q.IsCorrect(original) {
			answer.IsCorrect = true
			answer.EarnedPoints = q.Points
			score += q.Points
		}
		answers = append(answers, answer)
	}
	return answers, score
}

// Review is allowed for the attempt owner and staff. Items reflect the
// current question content shown in the attempt's option order.
func (s *AttemptService) Review(ctx context.Context, viewerID uint, viewerRole model.UserRole, attemptID string) (*AttemptReview, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != viewerID && !viewerRole.IsStaff() {
		return nil, util.ErrPermissionDenied
	}

	review := &AttemptReview{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		Status:      attempt.Status(),
		Score:       attempt.Score,
		MaxScore:    attempt.MaxScore,
		DurationSec: attempt.DurationSec,
		IsPassed:    attempt.IsPassed,
		StartedAt:   attempt.StartedAt,
		Deadline:    attempt.Deadline,
		SubmittedAt: attempt.SubmittedAt,
		Items:       []ReviewItem{},
	}

	if quiz, err := s.QuizRepo.FindByID(ctx, attempt.QuizID); err == nil {
		review.QuizTitle = quiz.Title
		review.TimeLimitSec = quiz.TimeLimitSec
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if user, err := s.UserRepo.FindByID(ctx, attempt.UserID); err == nil {
		review.User = user.Summary()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if len(attempt.Answers) == 0 {
		return review, nil
	}

	ids := make([]string, len(attempt.Answers))
	for i, a := range attempt.Answers {
		ids[i] = a.QuestionID
	}
	questions, err := s.QuestionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for _, a := range attempt.Answers {
		item := ReviewItem{
			QuestionID:    a.QuestionID,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
			EarnedPoints:  a.EarnedPoints,
		}
		if q, ok := byID[a.QuestionID]; ok {
			perm := attempt.DisplayOrder(q.ID, len(q.Options))
			item.Text = q.Text
			item.Explanation = q.Explanation
			item.Options = make([]string, len(perm))
			for displayed, original := range perm {
				item.Options[displayed] = q.Options[original]
				if original == q.CorrectIndex {
					correct := displayed
					item.CorrectIndex = &correct
				}
			}
		}
		review.Items = append(review.Items, item)
	}
	return review, nil
}

// ListMine returns the caller's attempts on a quiz, newest first.
func (s *AttemptService) ListMine(ctx context.Context, userID uint, quizID string) ([]AttemptSummary, error) {
	attempts, err := s.AttemptRepo.ListByUserAndQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]AttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptSummary{
			AttemptID:   a.ID,
			Status:      a.Status(),
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			DurationSec: a.DurationSec,
			IsPassed:    a.IsPassed,
			StartedAt:   a.StartedAt,
			SubmittedAt: a.SubmittedAt,
		}
	}
	return out, nil
}

// ExportCSV writes every submitted attempt of the quiz. It works for deleted
// quizzes too, so orphaned attempts stay reachable.
func (s *AttemptService) ExportCSV(ctx context.Context, quizID string, w io.Writer) error {
	rows, err := s.AttemptRepo.ExportRows(ctx, quizID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.AttemptID,
			strconv.FormatUint(uint64(r.UserID), 10),
			r.Name,
			r.Username,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.MaxScore),
			strconv.Itoa(r.DurationSec),
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *AttemptService) findAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, err
}
