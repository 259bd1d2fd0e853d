package model

// swagger:model Course
type Course struct {
	BaseModel
	Code       string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Title      string `gorm:"size:200;not null" json:"title"`
	Level      string `gorm:"size:20" json:"level,omitempty"`
	Department string `gorm:"size:100" json:"department,omitempty"`
	CreatedBy  uint   `json:"createdBy"`
}

func (Course) TableName() string {
	return "courses"
}
