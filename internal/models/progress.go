package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LessonIDSet is a JSONB-persisted set of completed lesson ids.
type LessonIDSet []string

// Contains reports membership.
func (s LessonIDSet) Contains(lessonID string) bool {
	for _, id := range s {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Value marshals the set to JSON for persistence.
func (s LessonIDSet) Value() (driver.Value, error) {
	if s == nil {
		s = LessonIDSet{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal lesson id set: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the set.
func (s *LessonIDSet) Scan(value interface{}) error {
	if value == nil {
		*s = LessonIDSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for LessonIDSet", value)
	}
	if len(data) == 0 {
		*s = LessonIDSet{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal lesson id set: %w", err)
	}
	return nil
}

// Progress tracks one user's advancement through one course. Created lazily on
// first access and mutated per lesson completion event. CurrentLessonPercent
// holds partial progress inside the lesson being worked on; completing a
// lesson resets it.
type Progress struct {
	ID                   string      `db:"id" json:"id"`
	UserID               string      `db:"user_id" json:"user_id"`
	CourseID             string      `db:"course_id" json:"course_id"`
	CompletedLessons     LessonIDSet `db:"completed_lessons" json:"completed_lessons"`
	Percentage           float64     `db:"percentage" json:"percentage"`
	CurrentLessonPercent float64     `db:"current_lesson_percent" json:"current_lesson_percent"`
	TimeSpent            int         `db:"time_spent_minutes" json:"time_spent_minutes"`
	LastAccessedAt       time.Time   `db:"last_accessed_at" json:"last_accessed_at"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// LessonAccess reports whether a lesson is reachable under linear progression.
type LessonAccess struct {
	LessonID   string `json:"lesson_id"`
	Accessible bool   `json:"accessible"`
	Reason     string `json:"reason,omitempty"`
}

// CourseProgressView is the computed progress payload for one course.
type CourseProgressView struct {
	CourseID         string      `json:"course_id"`
	Percentage       float64     `json:"percentage"`
	CompletedCount   int         `json:"completed_count"`
	TotalLessons     int         `json:"total_lessons"`
	CurrentLesson    int         `json:"current_lesson"`
	CurrentLessonID  string      `json:"current_lesson_id,omitempty"`
	TimeSpent        int         `json:"time_spent_minutes"`
	CompletedLessons LessonIDSet `json:"completed_lessons"`
	Completed        bool        `json:"completed"`
}
