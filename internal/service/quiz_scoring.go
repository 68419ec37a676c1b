package service

import "github.com/skillforge/lms-api/internal/models"

const missingAnswerIndex = -1

// ScoreSubmission grades a submission against the active question set using
// simple correct-count scoring. Percentage is correct over total questions;
// a question absent from the answers map counts as incorrect.
func ScoreSubmission(questions []models.Question, answers map[string]int, passThreshold float64) models.QuizScore {
	score := models.QuizScore{TotalQuestions: len(questions)}

	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			selected = missingAnswerIndex
		}
		if selected == q.CorrectAnswerIndex {
			score.Score++
		}
	}

	if score.TotalQuestions > 0 {
		score.Percentage = float64(score.Score) / float64(score.TotalQuestions) * 100
	}
	score.Passed = score.Percentage >= passThreshold
	return score
}

// ScoreSubmissionDetailed grades a submission with point weighting and a
// per-question breakdown for review. Questions with no points value count
// as worth one point so legacy question sets still produce a denominator.
func ScoreSubmissionDetailed(questions []models.Question, answers map[string]int, passThreshold float64) models.QuizScore {
	score := models.QuizScore{
		TotalQuestions: len(questions),
		Breakdown:      make([]models.QuestionBreakdown, 0, len(questions)),
	}

	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			selected = missingAnswerIndex
		}

		worth := q.Points
		if worth <= 0 {
			worth = 1
		}
		score.PossiblePoints += worth

		correct := selected == q.CorrectAnswerIndex
		earned := 0
		if correct {
			score.Score++
			earned = worth
			score.EarnedPoints += worth
		}

		score.Breakdown = append(score.Breakdown, models.QuestionBreakdown{
			QuestionID:    q.ID,
			SelectedIndex: selected,
			CorrectIndex:  q.CorrectAnswerIndex,
			Correct:       correct,
			Explanation:   q.Explanation,
			PointsEarned:  earned,
			PointsWorth:   worth,
		})
	}

	if score.PossiblePoints > 0 {
		score.Percentage = float64(score.EarnedPoints) / float64(score.PossiblePoints) * 100
	}
	score.Passed = score.Percentage >= passThreshold
	return score
}
