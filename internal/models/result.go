package models

import "time"

// ExamResult is the scored outcome of one finalized session, one per
// (user, exam). Created exactly once by the finalizer; rank and percentile are
// the only fields mutated afterwards, by the ranking engine.
type ExamResult struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_results_user_exam"`
	ExamID    uint `json:"exam_id" gorm:"not null;uniqueIndex:idx_results_user_exam"`
	SessionID uint `json:"session_id" gorm:"not null;index"`

	// Scoring
	Score          int  `json:"score"` // 0-100, floored percentage of correct answers
	Correct        int  `json:"correct"`
	Incorrect      int  `json:"incorrect"`
	Unanswered     int  `json:"unanswered"`
	TotalQuestions int  `json:"total_questions"`
	TimeTaken      int  `json:"time_taken"` // seconds, sum over answers
	Passed         bool `json:"passed"`

	// Standing, recomputed on every rerank
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`

	FinalizedAt time.Time `json:"finalized_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ExamResult) TableName() string {
	return "exam_results"
}
