package app

import (
	"math"
	"time"

	"github.com/google/uuid"

	"theory-exam-service/internal/domain"
)

// Score grades a finished answer sheet against the exam key. It is pure with
// respect to its inputs: identical exam and answers always yield the same
// score, correct count and pass verdict. An unanswered slot never matches a
// valid key index and counts as incorrect.
func Score(exam domain.Exam, answers []int, timeSpent time.Duration, completedAt time.Time) domain.ExamResult {
	total := len(exam.Questions)
	perQuestion := make([]domain.QuestionResult, 0, total)
	correct := 0
	for i, q := range exam.Questions {
		answer := domain.Unanswered
		if i < len(answers) {
			answer = answers[i]
		}
		isCorrect := answer == q.AnswerIndex
		if isCorrect {
			correct++
		}
		perQuestion = append(perQuestion, domain.QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    answer,
			CorrectAnswer: q.AnswerIndex,
			IsCorrect:     isCorrect,
			Explanation:   q.Explanation,
		})
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return domain.ExamResult{
		ID:               uuid.NewString(),
		ExamID:           exam.ID,
		ExamSlug:         exam.Slug,
		ExamTitle:        exam.Title,
		Score:            score,
		CorrectAnswers:   correct,
		TotalQuestions:   total,
		Passed:           score >= exam.PassThreshold(),
		TimeSpentMinutes: int(timeSpent / time.Minute),
		Results:          perQuestion,
		CompletedAt:      completedAt,
	}
}
