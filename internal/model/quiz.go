package model

import "gorm.io/datatypes"

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title            string                      `gorm:"size:200;not null" json:"title"`
	Description      string                      `gorm:"type:text" json:"description"`
	CourseID         uint                        `gorm:"index;not null" json:"courseId"`
	TimeLimitSec     int                         `gorm:"default:0" json:"timeLimitSec"`
	ShuffleQuestions bool                        `json:"shuffleQuestions"`
	ShuffleOptions   bool                        `json:"shuffleOptions"`
	AttemptLimit     int                         `gorm:"default:0" json:"attemptLimit"`
	PassingScore     int                         `json:"passingScore"`
	TotalPoints      int                         `gorm:"default:0" json:"totalPoints"`
	IsActive         bool                        `gorm:"index" json:"isActive"`
	Published        bool                        `gorm:"index" json:"published"`
	Sections         datatypes.JSONSlice[string] `json:"sections"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	CreatedBy        uint                        `gorm:"index" json:"createdBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Timed reports whether attempts carry a deadline.
func (q *Quiz) Timed() bool {
	return q.TimeLimitSec > 0
}

// Passed applies the quiz passing percentage to a score.
func (q *Quiz) Passed(score, maxScore int) bool {
	if maxScore <= 0 {
		return false
	}
	return score*100 >= q.PassingScore*maxScore
}
