package model

type UserRole string

const (
	Member UserRole = "member"
	Exec   UserRole = "exec"
	Admin  UserRole = "admin"
)

// IsStaff reports whether the role may manage quizzes and review any attempt.
func (r UserRole) IsStaff() bool {
	return r == Exec || r == Admin
}

func (r UserRole) Valid() bool {
	return r == Member || r == Exec || r == Admin
}

// swagger:model User
type User struct {
	BaseModel
	Name      string   `gorm:"size:100;not null" json:"name"`
	Username  string   `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string   `gorm:"size:100;not null" json:"-"`
	Role      UserRole `gorm:"size:20;default:'member';index" json:"role"`
	AvatarURL string   `gorm:"size:255" json:"avatarUrl"`
	Disabled  bool     `gorm:"default:false" json:"disabled"`
}

func (User) TableName() string {
	return "users"
}

// UserSummary is the public projection used in leaderboards and exports.
type UserSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Username: u.Username, AvatarURL: u.AvatarURL}
}
