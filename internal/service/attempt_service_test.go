package service

import (
	"bytes"
	"encoding/csv"
	"math/rand"
	"testing"
	"time"

	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answersFor(started *StartedAttempt, pick func(q PresentedQuestion) int) []SubmittedAnswer {
	out := make([]SubmittedAnswer, len(started.Questions))
	for i, q := range started.Questions {
		out[i] = SubmittedAnswer{QuestionID: q.ID, SelectedIndex: intPtr(pick(q))}
	}
	return out
}

func indexOf(options []string, want string) int {
	for i, o := range options {
		if o == want {
			return i
		}
	}
	return -1
}

// correctText maps the three-question fixture to its correct option text.
var correctText = map[string]string{"Q1": "Blue", "Q2": "One", "Q3": "Bird"}

func TestAttemptService_EndToEnd(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)

	res := f.importCSV(t, quiz.ID, threeQuestionCSV)
	assert.Equal(t, 3, res.Created)

	started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{QuestionCount: 3})
	require.NoError(t, err)
	require.Len(t, started.Questions, 3)
	assert.Equal(t, 3, started.MaxScore)
	assert.Nil(t, started.Deadline)

	// stored order, stored options: B, A, C
	submit := SubmitAttemptRequest{Answers: []SubmittedAnswer{
		{QuestionID: started.Questions[0].ID, SelectedIndex: intPtr(1)},
		{QuestionID: started.Questions[1].ID, SelectedIndex: intPtr(0)},
		{QuestionID: started.Questions[2].ID, SelectedIndex: intPtr(2)},
	}}
	result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, submit)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 3, result.MaxScore)
	assert.True(t, result.IsPassed)

	_, err = f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	stored, err := f.attempts.FindByID(f.ctx, started.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Score, "second submit must not touch the stored score")
	assert.Len(t, stored.Answers, 3)
	assert.Equal(t, model.AttemptSubmitted, stored.Status())
}

func TestAttemptService_StartPreconditions(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	course := f.course(t, "BIO101")

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := f.attemptSvc.Start(f.ctx, member.ID, "missing", StartAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrQuizUnavailable)
	})

	t.Run("inactive quiz", func(t *testing.T) {
		quiz := f.quiz(t, course.ID, func(q *model.Quiz) { q.IsActive = false })
		f.importCSV(t, quiz.ID, threeQuestionCSV)
		_, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrQuizUnavailable)
	})

	t.Run("unpublished quiz", func(t *testing.T) {
		quiz := f.quiz(t, course.ID, func(q *model.Quiz) { q.Published = false })
		f.importCSV(t, quiz.ID, threeQuestionCSV)

		_, err := f.quizSvc.Get(f.ctx, quiz.ID, model.Member)
		require.ErrorIs(t, err, util.ErrQuizNotFound)

		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrQuizUnavailable)
		assert.Nil(t, started)

		n, err := f.attempts.CountByUserAndQuiz(f.ctx, member.ID, quiz.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("no questions", func(t *testing.T) {
		quiz := f.quiz(t, course.ID, nil)
		_, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrNoQuestions)
	})

	t.Run("attempt limit", func(t *testing.T) {
		quiz := f.quiz(t, course.ID, func(q *model.Quiz) { q.AttemptLimit = 1 })
		f.importCSV(t, quiz.ID, threeQuestionCSV)
		_, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		require.NoError(t, err)
		_, err = f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrAttemptLimitReached)
	})
}

func TestAttemptService_QuestionCountClamp(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)
	f.importCSV(t, quiz.ID, threeQuestionCSV)

	cases := []struct {
		requested int
		want      int
	}{
		{0, 3},
		{-4, 3},
		{2, 2},
		{3, 3},
		{50, 3},
	}
	for _, tc := range cases {
		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{QuestionCount: tc.requested})
		require.NoError(t, err)
		assert.Len(t, started.Questions, tc.want, "requested %d", tc.requested)
		assert.Equal(t, tc.want, started.MaxScore)
	}
}

func TestAttemptService_ShuffledOptionsStayGradable(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, func(q *model.Quiz) {
		q.ShuffleQuestions = true
		q.ShuffleOptions = true
	})
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	f.attemptSvc.Shuffle = reverseShuffle

	started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
	require.NoError(t, err)

	require.Equal(t, "Q3", started.Questions[0].Text, "questions reversed")
	assert.Equal(t, []string{"Fish", "Bird", "Dog", "Cat"}, started.Questions[0].Options, "options reversed")

	answers := answersFor(started, func(q PresentedQuestion) int {
		return indexOf(q.Options, correctText[q.Text])
	})
	result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Score)

	t.Run("random shuffles never desynchronize the answer", func(t *testing.T) {
		f.attemptSvc.Shuffle = rand.Shuffle
		for i := 0; i < 20; i++ {
			started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
			require.NoError(t, err)
			answers := answersFor(started, func(q PresentedQuestion) int {
				return indexOf(q.Options, correctText[q.Text])
			})
			result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{Answers: answers})
			require.NoError(t, err)
			assert.Equal(t, 3, result.Score)
		}
	})
}

func TestAttemptService_SubmitScoring(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	all, err := f.questions.ListByQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)

	t.Run("only questions from the snapshot count", func(t *testing.T) {
		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{QuestionCount: 1})
		require.NoError(t, err)
		require.Equal(t, all[0].ID, started.Questions[0].ID)

		result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{Answers: []SubmittedAnswer{
			{QuestionID: all[0].ID, SelectedIndex: intPtr(1)},
			{QuestionID: all[1].ID, SelectedIndex: intPtr(0)},
			{QuestionID: all[2].ID, SelectedIndex: intPtr(2)},
			{QuestionID: "not-a-question", SelectedIndex: intPtr(0)},
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Score)
		assert.Equal(t, 1, result.MaxScore)
	})

	t.Run("wrong, blank, out of range and repeated answers", func(t *testing.T) {
		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		require.NoError(t, err)

		result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{Answers: []SubmittedAnswer{
			{QuestionID: all[0].ID, SelectedIndex: intPtr(0)},
			{QuestionID: all[0].ID, SelectedIndex: intPtr(1)},
			{QuestionID: all[1].ID},
			{QuestionID: all[2].ID, SelectedIndex: intPtr(9)},
		}})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Score)
		assert.False(t, result.IsPassed)

		stored, err := f.attempts.FindByID(f.ctx, started.AttemptID)
		require.NoError(t, err)
		require.Len(t, stored.Answers, 3)
		assert.Equal(t, 0, stored.Answers[0].SelectedIndex, "first occurrence wins")
		assert.Equal(t, -1, stored.Answers[1].SelectedIndex)
		assert.False(t, stored.Answers[2].IsCorrect)
	})

	t.Run("other users cannot submit", func(t *testing.T) {
		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		require.NoError(t, err)
		intruder := f.user(t, "eve", model.Admin)
		_, err = f.attemptSvc.Submit(f.ctx, intruder.ID, started.AttemptID, SubmitAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, err := f.attemptSvc.Submit(f.ctx, member.ID, "missing", SubmitAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	})
}

func TestAttemptService_Deadline(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "ada", model.Member)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, func(q *model.Quiz) { q.TimeLimitSec = 60 })
	f.importCSV(t, quiz.ID, threeQuestionCSV)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.attemptSvc.Now = func() time.Time { return base }

	start := func() *StartedAttempt {
		started, err := f.attemptSvc.Start(f.ctx, member.ID, quiz.ID, StartAttemptRequest{})
		require.NoError(t, err)
		return started
	}

	t.Run("deadline is start plus limit", func(t *testing.T) {
		started := start()
		require.NotNil(t, started.Deadline)
		assert.True(t, started.Deadline.Equal(base.Add(time.Minute)))
	})

	t.Run("late submits are accepted by default", func(t *testing.T) {
		started := start()
		f.attemptSvc.Now = func() time.Time { return base.Add(10*time.Minute + 500*time.Millisecond) }
		defer func() { f.attemptSvc.Now = func() time.Time { return base } }()

		result, err := f.attemptSvc.Submit(f.ctx, member.ID, started.AttemptID, SubmitAttemptRequest{})
		require.NoError(t, err)
		assert.Equal(t, 600, result.DurationSec, "duration is floored to whole seconds")
	})

	t.Run("enforced deadline honours the grace period", func(t *testing.T) {
		cfg := f.settings.Load()
		cfg.EnforceDeadline = true
		cfg.DeadlineGraceSec = 30
		f.settings.Store(cfg)

		inGrace := start()
		late := start()

		f.attemptSvc.Now = func() time.Time { return base.Add(80 * time.Second) }
		_, err := f.attemptSvc.Submit(f.ctx, member.ID, inGrace.AttemptID, SubmitAttemptRequest{})
		assert.NoError(t, err)

		f.attemptSvc.Now = func() time.Time { return base.Add(91 * time.Second) }
		_, err = f.attemptSvc.Submit(f.ctx, member.ID, late.AttemptID, SubmitAttemptRequest{})
		assert.ErrorIs(t, err, util.ErrAttemptExpired)
	})
}

func TestAttemptService_Review(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ada", model.Member)
	other := f.user(t, "bob", model.Member)
	exec := f.user(t, "cy", model.Exec)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, func(q *model.Quiz) { q.ShuffleOptions = true })
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	f.attemptSvc.Shuffle = reverseShuffle

	started, err := f.attemptSvc.Start(f.ctx, owner.ID, quiz.ID, StartAttemptRequest{QuestionCount: 1})
	require.NoError(t, err)

	t.Run("in progress review has no items", func(t *testing.T) {
		review, err := f.attemptSvc.Review(f.ctx, owner.ID, owner.Role, started.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, model.AttemptInProgress, review.Status)
		assert.Empty(t, review.Items)
	})

	// displayed options are Green, Blue, Red; pick Red
	_, err = f.attemptSvc.Submit(f.ctx, owner.ID, started.AttemptID, SubmitAttemptRequest{Answers: []SubmittedAnswer{
		{QuestionID: started.Questions[0].ID, SelectedIndex: intPtr(2)},
	}})
	require.NoError(t, err)

	t.Run("owner sees options in displayed order", func(t *testing.T) {
		review, err := f.attemptSvc.Review(f.ctx, owner.ID, owner.Role, started.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, "Quiz", review.QuizTitle)
		assert.Equal(t, "ada", review.User.Username)
		require.Len(t, review.Items, 1)

		item := review.Items[0]
		assert.Equal(t, []string{"Green", "Blue", "Red"}, item.Options)
		require.NotNil(t, item.CorrectIndex)
		assert.Equal(t, 1, *item.CorrectIndex)
		assert.Equal(t, 2, item.SelectedIndex)
		assert.False(t, item.IsCorrect)
		assert.Equal(t, "Blue it is", item.Explanation)
	})

	t.Run("staff may review", func(t *testing.T) {
		_, err := f.attemptSvc.Review(f.ctx, exec.ID, exec.Role, started.AttemptID)
		assert.NoError(t, err)
	})

	t.Run("other members may not", func(t *testing.T) {
		_, err := f.attemptSvc.Review(f.ctx, other.ID, other.Role, started.AttemptID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("review reflects current question content", func(t *testing.T) {
		q, err := f.questions.FindByID(f.ctx, started.Questions[0].ID)
		require.NoError(t, err)
		q.Explanation = "Updated"
		_, err = f.questions.Update(f.ctx, q)
		require.NoError(t, err)

		review, err := f.attemptSvc.Review(f.ctx, owner.ID, owner.Role, started.AttemptID)
		require.NoError(t, err)
		assert.Equal(t, "Updated", review.Items[0].Explanation)
	})
}

func TestAttemptService_ExportCSV(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)
	ada := f.user(t, "ada", model.Member)
	bob := f.user(t, "bob", model.Member)
	require.NoError(t, f.db.Model(bob).Update("name", `Bob "The Builder", Jr`).Error)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := f.submitted(t, ada.ID, quiz.ID, 4, 30, at)
	time.Sleep(10 * time.Millisecond)
	second := f.submitted(t, bob.ID, quiz.ID, 7, 45, at.Add(time.Hour))

	// in-progress attempts are not exported
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	_, err := f.attemptSvc.Start(f.ctx, ada.ID, quiz.ID, StartAttemptRequest{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.attemptSvc.ExportCSV(f.ctx, quiz.ID, &buf))

	assert.Contains(t, buf.String(), `"Bob ""The Builder"", Jr"`)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, second.ID, records[1][0], "newest first")
	assert.Equal(t, `Bob "The Builder", Jr`, records[1][2])
	assert.Equal(t, "7", records[1][4])
	assert.Equal(t, "2026-03-01T13:00:00Z", records[1][7])
	assert.Equal(t, first.ID, records[2][0])
}
