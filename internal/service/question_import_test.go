package service

import (
	"strings"
	"testing"

	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionCSV(t *testing.T) {
	t.Run("maps columns and defaults", func(t *testing.T) {
		parsed, err := ParseQuestionCSV(strings.NewReader(threeQuestionCSV))
		require.NoError(t, err)
		assert.Empty(t, parsed.Errors)
		assert.Equal(t, 3, parsed.RowCount)
		require.Len(t, parsed.Questions, 3)

		q1 := parsed.Questions[0]
		assert.Equal(t, "Q1", q1.Text, "text falls back to question")
		assert.Equal(t, []string{"Red", "Blue", "Green"}, []string(q1.Options))
		assert.Equal(t, 1, q1.CorrectIndex)
		assert.Equal(t, model.Easy, q1.Difficulty)
		assert.Equal(t, "Blue it is", q1.Explanation)
		assert.Equal(t, []string{"colors"}, []string(q1.Tags))
		assert.Equal(t, "Basics", q1.Section)

		assert.Equal(t, model.Medium, parsed.Questions[1].Difficulty, "difficulty defaults to medium")
		assert.Equal(t, 2, parsed.Questions[2].CorrectIndex)
	})

	t.Run("handles quotes, escaped quotes, CRLF and blank lines", func(t *testing.T) {
		body := "Question,Text,OptionA,OptionB,Correct,Points,Tags\r\n" +
			"\r\n" +
			"\"Pick one, please\",\"He said \"\"hi\"\"\",\"a, b\",c,a,2,\"x, y ,\"\r\n" +
			"   \r\n"
		parsed, err := ParseQuestionCSV(strings.NewReader(body))
		require.NoError(t, err)
		require.Empty(t, parsed.Errors)
		require.Len(t, parsed.Questions, 1)

		q := parsed.Questions[0]
		assert.Equal(t, `He said "hi"`, q.Text)
		assert.Equal(t, []string{"a, b", "c"}, []string(q.Options))
		assert.Equal(t, 0, q.CorrectIndex, "letters are case-insensitive")
		assert.Equal(t, 2, q.Points)
		assert.Equal(t, []string{"x", "y"}, []string(q.Tags))
		assert.Equal(t, 1, parsed.RowCount)
	})

	t.Run("empty points default to one and options are compacted", func(t *testing.T) {
		body := "question,text,optiona,optionb,optionc,correct,points\n" +
			"Q,,,Yes,No,B,\n"
		parsed, err := ParseQuestionCSV(strings.NewReader(body))
		require.NoError(t, err)
		require.Len(t, parsed.Questions, 1)
		assert.Equal(t, []string{"Yes", "No"}, []string(parsed.Questions[0].Options))
		assert.Equal(t, 1, parsed.Questions[0].CorrectIndex)
		assert.Equal(t, 1, parsed.Questions[0].Points)
	})

	t.Run("collects one error per invalid row with row numbers", func(t *testing.T) {
		body := "question,text,optiona,optionb,optionc,correct,points,difficulty\n" +
			"Q1,,only,,,A,1,\n" +
			"Q2,,a,b,,C,1,\n" +
			"Q3,,a,b,,A,1,extreme\n" +
			"Q4,,a,b,,A,-3,\n" +
			",,a,b,,A,1,\n" +
			"Q6,,a,b,c,Z,1,\n" +
			"Q7,,a,b,c,C,1,HARD\n"
		parsed, err := ParseQuestionCSV(strings.NewReader(body))
		require.NoError(t, err)

		assert.Equal(t, []RowError{
			{Row: 2, Message: "at least 2 non-empty options are required"},
			{Row: 3, Message: "invalid correct answer letter"},
			{Row: 4, Message: "invalid difficulty"},
			{Row: 5, Message: "invalid points"},
			{Row: 6, Message: "question text is required"},
			{Row: 7, Message: "invalid correct answer letter"},
		}, parsed.Errors)
		require.Len(t, parsed.Questions, 1)
		assert.Equal(t, model.Hard, parsed.Questions[0].Difficulty)
		assert.Equal(t, 7, parsed.RowCount)
	})

	t.Run("structural problems", func(t *testing.T) {
		cases := map[string]string{
			"header only":     "question,text,optiona,optionb,correct,points\n",
			"empty":           "",
			"missing columns": "question,optiona,optionb,correct\nQ,a,b,A\n",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseQuestionCSV(strings.NewReader(body))
				assert.ErrorIs(t, err, util.ErrInvalidCSV)
			})
		}
	})
}

func TestLetterIndex(t *testing.T) {
	for letter, want := range map[string]int{"A": 0, "b": 1, " E ": 4} {
		got, ok := letterIndex(letter)
		assert.True(t, ok, letter)
		assert.Equal(t, want, got, letter)
	}
	for _, bad := range []string{"", "F", "AB", "1"} {
		_, ok := letterIndex(bad)
		assert.False(t, ok, bad)
	}
}
