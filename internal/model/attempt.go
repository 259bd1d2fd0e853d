package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// AttemptAnswer is one graded answer. SelectedIndex is in displayed option order, -1 when blank.
type AttemptAnswer struct {
	QuestionID    string `json:"question"`
	SelectedIndex int    `json:"selectedIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	EarnedPoints  int    `json:"earnedPoints"`
}

// OptionOrders maps a question id to the original option index at each displayed position.
// Questions presented in stored order have no entry.
type OptionOrders map[string][]int

// swagger:model Attempt
type Attempt struct {
	UUIDBase
	UserID        uint                               `gorm:"index;not null" json:"userId"`
	QuizID        string                             `gorm:"size:36;index;not null" json:"quizId"`
	QuestionOrder datatypes.JSONSlice[string]        `gorm:"not null" json:"questionOrder"`
	OptionOrders  datatypes.JSONType[OptionOrders]   `json:"-"`
	Answers       datatypes.JSONSlice[AttemptAnswer] `json:"answers"`
	Score         int                                `gorm:"default:0" json:"score"`
	MaxScore      int                                `json:"maxScore"`
	StartedAt     time.Time                          `gorm:"not null" json:"startedAt"`
	Deadline      *time.Time                         `json:"deadline,omitempty"`
	SubmittedAt   *time.Time                         `gorm:"index" json:"submittedAt,omitempty"`
	DurationSec   int                                `gorm:"default:0" json:"durationSec"`
	IsPassed      bool                               `json:"isPassed"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) Status() AttemptStatus {
	if a.SubmittedAt != nil {
		return AttemptSubmitted
	}
	return AttemptInProgress
}

// DisplayOrder returns the displayed-to-original option mapping for a question,
// falling back to identity when none was recorded or it no longer fits n options.
func (a *Attempt) DisplayOrder(questionID string, n int) []int {
	if perm, ok := a.OptionOrders.Data()[questionID]; ok && isPermutation(perm, n) {
		return perm
	}
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	return identity
}

func isPermutation(perm []int, n int) bool {
	if len(perm) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range perm {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
