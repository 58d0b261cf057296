package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContestStatus string

const (
	ContestUpcoming  ContestStatus = "Upcoming"
	ContestActive    ContestStatus = "Active"
	ContestCompleted ContestStatus = "Completed"
)

// Contest status is owned by the lifecycle scheduler; the administrative
// override path performs the same guarded transitions.
type Contest struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	// Window
	StartTime time.Time `json:"start_time" gorm:"not null;index"`
	EndTime   time.Time `json:"end_time" gorm:"not null;index"`
	Duration  int       `json:"duration" gorm:"not null"` // minutes

	ProblemIDs datatypes.JSONSlice[uint] `json:"problem_ids" gorm:"type:jsonb"`

	Status           ContestStatus `json:"status" gorm:"default:Upcoming;index" validate:"omitempty,oneof=Upcoming Active Completed"`
	ParticipantCount int           `json:"participant_count" gorm:"default:0"`

	ArchivedAt *time.Time `json:"archived_at" gorm:"index"`

	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Contest) TableName() string {
	return "contests"
}

// ContestParticipant records a user joining a contest, at most one per
// (contest, user).
type ContestParticipant struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	ContestID uint `json:"contest_id" gorm:"not null;uniqueIndex:idx_contest_participants_user"`
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_contest_participants_user"`

	JoinedAt  time.Time `json:"joined_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContestParticipant) TableName() string {
	return "contest_participants"
}

// ContestSubmission is one answer per (user, question, contest), graded at
// submission time. Contests have no enclosing attempt record; close-time
// finalization aggregates these rows per user.
type ContestSubmission struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ContestID  uint `json:"contest_id" gorm:"not null;uniqueIndex:idx_contest_submissions_user_question"`
	UserID     uint `json:"user_id" gorm:"not null;uniqueIndex:idx_contest_submissions_user_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_contest_submissions_user_question"`

	Answer    string `json:"answer" gorm:"type:text"`
	IsCorrect bool   `json:"is_correct"`
	Points    int    `json:"points"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ContestSubmission) TableName() string {
	return "contest_submissions"
}

// ContestResult is the per-user aggregate written once when a contest closes,
// one per (user, contest). Rank and percentile are recomputed by the ranking
// engine.
type ContestResult struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	ContestID uint `json:"contest_id" gorm:"not null;uniqueIndex:idx_contest_results_user"`
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_contest_results_user"`

	TotalPoints int `json:"total_points"`
	Submissions int `json:"submissions"`
	Correct     int `json:"correct"`
	TimeTaken   int `json:"time_taken"` // seconds from contest start to last submission

	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`

	FinalizedAt time.Time `json:"finalized_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ContestResult) TableName() string {
	return "contest_results"
}
