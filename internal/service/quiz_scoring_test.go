package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillforge/lms-api/internal/models"
)

func scoringQuestions(n int) []models.Question {
	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, models.Question{
			ID:                 string(rune('a' + i)),
			Options:            []string{"one", "two", "three", "four"},
			CorrectAnswerIndex: i % 4,
		})
	}
	return questions
}

func TestScoreSubmissionCorrectCount(t *testing.T) {
	questions := scoringQuestions(5)
	answers := map[string]int{
		questions[0].ID: questions[0].CorrectAnswerIndex,
		questions[1].ID: questions[1].CorrectAnswerIndex,
		questions[2].ID: questions[2].CorrectAnswerIndex,
		questions[3].ID: (questions[3].CorrectAnswerIndex + 1) % 4,
	}

	score := ScoreSubmission(questions, answers, 70)

	assert.Equal(t, 3, score.Score)
	assert.Equal(t, 5, score.TotalQuestions)
	assert.InDelta(t, 60.0, score.Percentage, 0.001)
	assert.False(t, score.Passed)
}

func TestScoreSubmissionMissingAnswerIsIncorrect(t *testing.T) {
	questions := scoringQuestions(2)
	answers := map[string]int{questions[0].ID: questions[0].CorrectAnswerIndex}

	score := ScoreSubmission(questions, answers, 70)

	assert.Equal(t, 1, score.Score)
	assert.InDelta(t, 50.0, score.Percentage, 0.001)
	assert.False(t, score.Passed)
}

func TestScoreSubmissionPassesAtThreshold(t *testing.T) {
	questions := scoringQuestions(10)
	answers := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		answers[questions[i].ID] = questions[i].CorrectAnswerIndex
	}

	score := ScoreSubmission(questions, answers, 70)

	assert.Equal(t, 7, score.Score)
	assert.InDelta(t, 70.0, score.Percentage, 0.001)
	assert.True(t, score.Passed)
}

func TestScoreSubmissionEmptyQuestionSet(t *testing.T) {
	score := ScoreSubmission(nil, map[string]int{"x": 0}, 70)

	assert.Zero(t, score.Score)
	assert.Zero(t, score.TotalQuestions)
	assert.Zero(t, score.Percentage)
	assert.False(t, score.Passed)
}

func TestScoreSubmissionDetailedWeighted(t *testing.T) {
	questions := []models.Question{
		{ID: "q1", Options: []string{"a", "b"}, CorrectAnswerIndex: 0, Points: 10},
		{ID: "q2", Options: []string{"a", "b"}, CorrectAnswerIndex: 1, Points: 20},
	}
	answers := map[string]int{"q1": 0, "q2": 0}

	score := ScoreSubmissionDetailed(questions, answers, 70)

	assert.Equal(t, 1, score.Score)
	assert.Equal(t, 10, score.EarnedPoints)
	assert.Equal(t, 30, score.PossiblePoints)
	assert.InDelta(t, 33.333, score.Percentage, 0.01)
	assert.False(t, score.Passed)

	assert.Len(t, score.Breakdown, 2)
	assert.True(t, score.Breakdown[0].Correct)
	assert.Equal(t, 10, score.Breakdown[0].PointsEarned)
	assert.False(t, score.Breakdown[1].Correct)
	assert.Equal(t, 0, score.Breakdown[1].PointsEarned)
	assert.Equal(t, 20, score.Breakdown[1].PointsWorth)
}

func TestScoreSubmissionDetailedZeroPointQuestionsWorthOne(t *testing.T) {
	questions := []models.Question{
		{ID: "q1", Options: []string{"a", "b"}, CorrectAnswerIndex: 0},
		{ID: "q2", Options: []string{"a", "b"}, CorrectAnswerIndex: 1},
	}
	answers := map[string]int{"q1": 0, "q2": 1}

	score := ScoreSubmissionDetailed(questions, answers, 70)

	assert.Equal(t, 2, score.PossiblePoints)
	assert.Equal(t, 2, score.EarnedPoints)
	assert.InDelta(t, 100.0, score.Percentage, 0.001)
	assert.True(t, score.Passed)
}

func TestScoreSubmissionNeverExceedsTotal(t *testing.T) {
	questions := scoringQuestions(4)
	answers := make(map[string]int, len(questions))
	for _, q := range questions {
		answers[q.ID] = q.CorrectAnswerIndex
	}

	score := ScoreSubmission(questions, answers, 70)

	assert.LessOrEqual(t, score.Score, score.TotalQuestions)
	assert.InDelta(t, 100.0, score.Percentage, 0.001)
}
