package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty enumerates course difficulty levels.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// LessonType enumerates supported lesson content kinds.
type LessonType string

const (
	LessonTypeVideo        LessonType = "video"
	LessonTypeInteractive  LessonType = "interactive"
	LessonTypeQuiz         LessonType = "quiz"
	LessonTypeText         LessonType = "text"
	LessonTypeDocument     LessonType = "document"
	LessonTypePresentation LessonType = "presentation"
	LessonTypeMixed        LessonType = "mixed"
)

// Attachment references supplemental material linked to a course, module or lesson.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// ContentBlock is one ordered unit inside a mixed-type lesson.
type ContentBlock struct {
	Type    string `json:"type"`
	Body    string `json:"body,omitempty"`
	URL     string `json:"url,omitempty"`
	Order   int    `json:"order"`
	Caption string `json:"caption,omitempty"`
}

// Lesson is a single unit of study inside a module.
type Lesson struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Duration      int               `json:"duration"`
	Type          LessonType        `json:"type"`
	Content       string            `json:"content,omitempty"`
	VideoURL      string            `json:"video_url,omitempty"`
	VideoURLs     map[string]string `json:"video_urls,omitempty"`
	Attachments   []Attachment      `json:"attachments,omitempty"`
	QuizID        *string           `json:"quiz_id,omitempty"`
	ContentBlocks []ContentBlock    `json:"content_blocks,omitempty"`
}

// Module groups ordered lessons. Modules exist only inside a course content
// document; they have no table of their own.
type Module struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Lessons     []Lesson     `json:"lessons"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// CourseContent is the persisted course structure document. Legacy write paths
// produced documents with a top-level lessons array, module arrays with empty
// lesson lists, or both; both fields decode so the repair pass can reconcile.
type CourseContent struct {
	Modules []Module `json:"modules,omitempty"`
	Lessons []Lesson `json:"lessons,omitempty"`
}

// LessonCount returns the number of reader-visible lessons: those inside
// modules, or the legacy top-level array when no module carries any. A
// top-level array shadowed by authored modules is not counted twice.
func (c CourseContent) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	if n > 0 {
		return n
	}
	return len(c.Lessons)
}

// Value marshals the content document to JSON for persistence.
func (c CourseContent) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal course content: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the content document.
func (c *CourseContent) Scan(value interface{}) error {
	if value == nil {
		*c = CourseContent{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for CourseContent", value)
	}
	if len(data) == 0 {
		*c = CourseContent{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal course content: %w", err)
	}
	return nil
}

// Course represents a course owned by an instructor.
type Course struct {
	ID           string        `db:"id" json:"id"`
	Title        string        `db:"title" json:"title"`
	Description  string        `db:"description" json:"description"`
	Difficulty   Difficulty    `db:"difficulty" json:"difficulty"`
	Duration     int           `db:"duration_hours" json:"duration_hours"`
	ThumbnailURL string        `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Published    bool          `db:"published" json:"published"`
	Category     string        `db:"category" json:"category"`
	InstructorID string        `db:"instructor_id" json:"instructor_id"`
	Content      CourseContent `db:"content" json:"content"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	InstructorID string
	Category     string
	Difficulty   Difficulty
	Published    *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
