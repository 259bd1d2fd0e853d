package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDisabled      = errors.New("account is deactivated")
	ErrInvalidSignupCode    = errors.New("invalid role code")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseCodeTaken      = errors.New("course code already exists")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizUnavailable      = errors.New("quiz not found or inactive")
	ErrNoQuestions          = errors.New("no questions in this quiz yet")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptLimitReached  = errors.New("attempt limit reached")
	ErrAlreadySubmitted     = errors.New("attempt already submitted")
	ErrAttemptExpired       = errors.New("attempt deadline has passed")
	ErrInvalidCSV           = errors.New("invalid csv")
	ErrCSVValidation        = errors.New("validation errors")
	ErrInvalidReorder       = errors.New("question ids do not match the quiz")
	ErrUnsupportedMediaType = errors.New("unsupported file type")
)
