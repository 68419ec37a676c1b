package models

import (
	"time"

	"github.com/lib/pq"
)

// Quiz groups questions with a time limit. TotalQuestions is a denormalized
// counter kept consistent with the active question set inside the same
// transaction as every question write.
type Quiz struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	TimeLimit      int       `db:"time_limit_seconds" json:"time_limit_seconds"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	CourseID       *string   `db:"course_id" json:"course_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Question is a single multiple-choice question. Deletion is soft via IsActive.
type Question struct {
	ID                 string         `db:"id" json:"id"`
	QuizID             string         `db:"quiz_id" json:"quiz_id"`
	Text               string         `db:"text" json:"text"`
	Options            pq.StringArray `db:"options" json:"options"`
	CorrectAnswerIndex int            `db:"correct_answer_index" json:"correct_answer_index"`
	Explanation        *string        `db:"explanation" json:"explanation,omitempty"`
	Points             int            `db:"points" json:"points"`
	Difficulty         *string        `db:"difficulty" json:"difficulty,omitempty"`
	Tags               pq.StringArray `db:"tags" json:"tags,omitempty"`
	OrderIndex         int            `db:"order_index" json:"order_index"`
	Hint               *string        `db:"hint" json:"hint,omitempty"`
	Feedback           *string        `db:"feedback" json:"feedback,omitempty"`
	IsActive           bool           `db:"is_active" json:"is_active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// QuizFilter captures filtering criteria for listing quizzes.
type QuizFilter struct {
	CourseID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
