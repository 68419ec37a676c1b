package models

import "time"

// QuizSubmission carries a user's answers keyed by question id. A question
// missing from Answers is scored as answer index -1 and is always incorrect.
type QuizSubmission struct {
	Answers   map[string]int `json:"answers" validate:"required"`
	TimeSpent int            `json:"time_spent_seconds"`
}

// QuestionBreakdown describes the outcome for one question in a detailed score.
type QuestionBreakdown struct {
	QuestionID    string  `json:"question_id"`
	SelectedIndex int     `json:"selected_index"`
	CorrectIndex  int     `json:"correct_index"`
	Correct       bool    `json:"correct"`
	Explanation   *string `json:"explanation,omitempty"`
	PointsEarned  int     `json:"points_earned"`
	PointsWorth   int     `json:"points_worth"`
}

// QuizScore is the outcome of scoring one submission.
type QuizScore struct {
	Score          int                 `json:"score"`
	TotalQuestions int                 `json:"total_questions"`
	EarnedPoints   int                 `json:"earned_points"`
	PossiblePoints int                 `json:"possible_points"`
	Percentage     float64             `json:"percentage"`
	Passed         bool                `json:"passed"`
	Breakdown      []QuestionBreakdown `json:"breakdown,omitempty"`
}

// QuizResult is an immutable record of one quiz attempt. Attempts are
// append-only; retakes are unlimited and history is never pruned.
type QuizResult struct {
	ID             string    `db:"id" json:"id"`
	QuizID         string    `db:"quiz_id" json:"quiz_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Score          int       `db:"score" json:"score"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	EarnedPoints   int       `db:"earned_points" json:"earned_points"`
	PossiblePoints int       `db:"possible_points" json:"possible_points"`
	Percentage     float64   `db:"percentage" json:"percentage"`
	Passed         bool      `db:"passed" json:"passed"`
	TimeSpent      int       `db:"time_spent_seconds" json:"time_spent_seconds"`
	SubmittedAt    time.Time `db:"submitted_at" json:"submitted_at"`
}

// QuizResultFilter captures filtering criteria for listing attempts.
type QuizResultFilter struct {
	QuizID   string
	UserID   string
	Page     int
	PageSize int
}
