package domain

import "time"

// DefaultPassThresholdPercent applies when an exam definition carries no
// threshold of its own.
const DefaultPassThresholdPercent = 80

// Unanswered marks an answer slot that has not been filled in yet.
const Unanswered = -1

// Question models an MCQ question with exactly one correct option index.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

// Exam is an immutable exam definition: metadata plus questions in exam order.
type Exam struct {
	ID                   string     `json:"id"`
	Slug                 string     `json:"slug"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Questions            []Question `json:"questions"`
	TotalTimeSeconds     int        `json:"totalTimeSeconds,omitempty"`
	PassThresholdPercent int        `json:"passThresholdPercent,omitempty"`
}

// PassThreshold returns the exam's threshold, falling back to the default.
func (e Exam) PassThreshold() int {
	if e.PassThresholdPercent > 0 {
		return e.PassThresholdPercent
	}
	return DefaultPassThresholdPercent
}

// QuestionResult is the per-question breakdown inside an ExamResult.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	UserAnswer    int    `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation,omitempty"`
}

// ExamResult is the immutable record of one scored attempt.
type ExamResult struct {
	ID               string           `json:"id"`
	ExamID           string           `json:"examId"`
	ExamSlug         string           `json:"examSlug"`
	ExamTitle        string           `json:"examTitle"`
	Score            int              `json:"score"`
	CorrectAnswers   int              `json:"correctAnswers"`
	TotalQuestions   int              `json:"totalQuestions"`
	Passed           bool             `json:"passed"`
	TimeSpentMinutes int              `json:"timeSpentMinutes"`
	Results          []QuestionResult `json:"results"`
	CompletedAt      time.Time        `json:"completedAt"`
}

// Achievements are monotonic flags: once set they are never cleared.
type Achievements struct {
	FirstExam    bool `json:"firstExam"`
	FirstPass    bool `json:"firstPass"`
	PerfectScore bool `json:"perfectScore"`
	WeekStreak   bool `json:"weekStreak"`
	MonthStreak  bool `json:"monthStreak"`
	Scholar      bool `json:"scholar"`
	Dedicated    bool `json:"dedicated"`
}

// Progress is the cumulative per-user learning record.
type Progress struct {
	UserID                string       `json:"userId"`
	TotalAttempts         int          `json:"totalAttempts"`
	TotalPassed           int          `json:"totalPassed"`
	TotalFailed           int          `json:"totalFailed"`
	AverageScore          float64      `json:"averageScore"`
	BestScore             int          `json:"bestScore"`
	TotalTimeSpentMinutes int          `json:"totalTimeSpentMinutes"`
	LastExamDate          time.Time    `json:"lastExamDate"`
	Achievements          Achievements `json:"achievements"`
	CurrentStreak         int          `json:"currentStreak"`
	LongestStreak         int          `json:"longestStreak"`
}

// ActivityType enumerates the known activity log events.
type ActivityType string

const (
	ActivityExamStarted   ActivityType = "exam_started"
	ActivityExamCompleted ActivityType = "exam_completed"
	ActivityExamPassed    ActivityType = "exam_passed"
	ActivityExamFailed    ActivityType = "exam_failed"
	ActivityNoteRead      ActivityType = "note_read"
)

// ActivityData is the payload attached to a log entry. Exactly one variant
// is populated, selected by the entry type.
type ActivityData struct {
	Exam *ExamActivity `json:"exam,omitempty"`
	Note *NoteActivity `json:"note,omitempty"`
}

// ExamActivity is the payload variant for exam_* events.
type ExamActivity struct {
	ExamID    string `json:"examId"`
	ExamTitle string `json:"examTitle"`
	Score     int    `json:"score,omitempty"`
	Passed    bool   `json:"passed,omitempty"`
}

// NoteActivity is the payload variant for note_read events.
type NoteActivity struct {
	NoteID string `json:"noteId"`
	Title  string `json:"title,omitempty"`
}

// ActivityEntry is one element of the append-only activity log.
type ActivityEntry struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Data      ActivityData `json:"data"`
	UserID    string       `json:"userId"`
}

// Note is a study-note document served to the reading screens.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
	Topic     string    `json:"topic"`
	Category  string    `json:"category"`
}
