package model

import "gorm.io/datatypes"

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

const (
	MinOptions = 2
	MaxOptions = 5
)

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID       string                      `gorm:"size:36;index;not null" json:"quizId"`
	Text         string                      `gorm:"type:text;not null" json:"text"`
	Options      datatypes.JSONSlice[string] `gorm:"not null" json:"options"`
	CorrectIndex int                         `json:"correctIndex"`
	Points       int                         `gorm:"not null" json:"points"`
	Difficulty   Difficulty                  `gorm:"size:10" json:"difficulty"`
	Section      string                      `gorm:"size:100" json:"section,omitempty"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Explanation  string                      `gorm:"type:text" json:"explanation,omitempty"`
	ImageURL     string                      `gorm:"size:255" json:"imageUrl,omitempty"`
	SortOrder    int                         `gorm:"index" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

// IsCorrect compares an index into Options with the stored answer.
func (q *Question) IsCorrect(index int) bool {
	return index >= 0 && index < len(q.Options) && index == q.CorrectIndex
}
