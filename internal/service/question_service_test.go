package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const badRowCSV = "question,text,optionA,optionB,optionC,optionD,optionE,correct,points,explanation,tags,difficulty,section\n" +
	"Good,,Yes,No,,,,A,2,,,,\n" +
	"Broken,,Only,,,,,A,1,,,,\n"

func TestQuestionService_ImportCSV(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)

	t.Run("dry run reports row errors without persisting", func(t *testing.T) {
		res, err := f.questionSvc.ImportCSV(f.ctx, quiz.ID, strings.NewReader(badRowCSV), true)
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.True(t, res.DryRun)
		assert.Equal(t, 2, res.RowCount)
		assert.Equal(t, 1, res.ValidRows)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 3, res.Errors[0].Row)

		count, err := f.questions.CountByQuiz(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("commit with row errors inserts nothing", func(t *testing.T) {
		res, err := f.questionSvc.ImportCSV(f.ctx, quiz.ID, strings.NewReader(badRowCSV), false)
		assert.ErrorIs(t, err, util.ErrCSVValidation)
		require.NotNil(t, res)
		assert.Len(t, res.Errors, 1)
		assert.Zero(t, res.Created)

		count, err := f.questions.CountByQuiz(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("valid dry run still persists nothing", func(t *testing.T) {
		res, err := f.questionSvc.ImportCSV(f.ctx, quiz.ID, strings.NewReader(threeQuestionCSV), true)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, 3, res.ValidRows)
		assert.Zero(t, res.Created)

		count, err := f.questions.CountByQuiz(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("commits append and recompute total points", func(t *testing.T) {
		res := f.importCSV(t, quiz.ID, threeQuestionCSV)
		assert.Equal(t, 3, res.Created)
		assert.Equal(t, 3, res.TotalPoints)

		res = f.importCSV(t, quiz.ID, "question,text,optionA,optionB,correct,points\nExtra,,a,b,B,4\n")
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 7, res.TotalPoints)

		stored, err := f.quizzes.FindByID(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, stored.TotalPoints)

		questions, err := f.questions.ListByQuiz(f.ctx, quiz.ID)
		require.NoError(t, err)
		require.Len(t, questions, 4)
		assert.Equal(t, "Extra", questions[3].Text, "new rows go after existing ones")
		assert.Equal(t, model.Hard, questions[2].Difficulty)
		assert.Equal(t, []string{"colors"}, []string(questions[0].Tags))
	})

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := f.questionSvc.ImportCSV(f.ctx, "missing", strings.NewReader(threeQuestionCSV), true)
		assert.ErrorIs(t, err, util.ErrQuizNotFound)
	})

	t.Run("structurally broken file", func(t *testing.T) {
		_, err := f.questionSvc.ImportCSV(f.ctx, quiz.ID, strings.NewReader("question,optionA\n"), true)
		assert.ErrorIs(t, err, util.ErrInvalidCSV)
	})
}

func TestQuestionService_CRUD(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)

	q, err := f.questionSvc.Create(f.ctx, quiz.ID, QuestionRequest{
		Text:         "  Capital of Ghana? ",
		Options:      []string{"Accra", " Kumasi ", ""},
		CorrectIndex: 0,
		Points:       intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Capital of Ghana?", q.Text)
	assert.Equal(t, []string{"Accra", "Kumasi"}, []string(q.Options))
	assert.Equal(t, model.Medium, q.Difficulty)

	stored, err := f.quizzes.FindByID(f.ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalPoints)

	t.Run("zero points is allowed", func(t *testing.T) {
		updated, err := f.questionSvc.Update(f.ctx, q.ID, QuestionRequest{
			Text:         "Capital of Ghana?",
			Options:      []string{"Accra", "Kumasi"},
			CorrectIndex: 0,
			Points:       intPtr(0),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Points)

		stored, err := f.quizzes.FindByID(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.TotalPoints)
	})

	t.Run("rejects invalid bodies", func(t *testing.T) {
		cases := map[string]QuestionRequest{
			"one option":        {Text: "x", Options: []string{"a"}},
			"correct too large": {Text: "x", Options: []string{"a", "b"}, CorrectIndex: 2},
			"bad difficulty":    {Text: "x", Options: []string{"a", "b"}, Difficulty: "brutal"},
			"blank text":        {Text: "   ", Options: []string{"a", "b"}},
		}
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.questionSvc.Create(f.ctx, quiz.ID, req)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "got %v", err)
			})
		}
	})

	t.Run("delete recomputes total", func(t *testing.T) {
		extra, err := f.questionSvc.Create(f.ctx, quiz.ID, QuestionRequest{
			Text: "Extra", Options: []string{"a", "b"}, Points: intPtr(5),
		})
		require.NoError(t, err)
		require.NoError(t, f.questionSvc.Delete(f.ctx, extra.ID))

		stored, err := f.quizzes.FindByID(f.ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.TotalPoints)

		assert.ErrorIs(t, f.questionSvc.Delete(f.ctx, extra.ID), util.ErrQuestionNotFound)
	})
}

func TestQuestionService_Reorder(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	questions, err := f.questions.ListByQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)
	a, b, c := questions[0].ID, questions[1].ID, questions[2].ID

	require.NoError(t, f.questionSvc.Reorder(f.ctx, quiz.ID, ReorderRequest{QuestionIDs: []string{c, a, b}}))
	reordered, err := f.questions.ListByQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c, a, b}, []string{reordered[0].ID, reordered[1].ID, reordered[2].ID})

	for name, ids := range map[string][]string{
		"missing one": {a, b},
		"duplicate":   {a, a, b},
		"foreign id":  {a, b, "other"},
	} {
		t.Run(name, func(t *testing.T) {
			err := f.questionSvc.Reorder(f.ctx, quiz.ID, ReorderRequest{QuestionIDs: ids})
			assert.ErrorIs(t, err, util.ErrInvalidReorder)
		})
	}
}

func TestQuestionService_UploadImage(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, f.course(t, "BIO101").ID, nil)
	f.importCSV(t, quiz.ID, threeQuestionCSV)
	questions, err := f.questions.ListByQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)
	target := questions[0]

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	url, err := f.questionSvc.UploadImage(f.ctx, target.ID, bytes.NewReader(png), int64(len(png)))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/questions/"+quiz.ID+"/"+target.ID+".png", url)

	stored, err := f.questions.FindByID(f.ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.ImageURL)

	_, err = f.questionSvc.UploadImage(f.ctx, target.ID, strings.NewReader("plain text, not an image"), 24)
	assert.ErrorIs(t, err, util.ErrUnsupportedMediaType)
}
