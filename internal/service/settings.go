package service

import (
	"fellowship_backend/internal/config"
	"sync/atomic"
)

// QuizSettings shares the hot-reloadable quiz section between services.
type QuizSettings struct {
	v atomic.Pointer[config.QuizConfig]
}

func NewQuizSettings(cfg config.QuizConfig) *QuizSettings {
	s := &QuizSettings{}
	s.Store(cfg)
	return s
}

func (s *QuizSettings) Load() config.QuizConfig {
	return *s.v.Load()
}

func (s *QuizSettings) Store(cfg config.QuizConfig) {
	s.v.Store(&cfg)
}

func clampLimit(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		requested = max
	}
	return requested
}
