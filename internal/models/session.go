package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExamSession is one user's single timed attempt at one exam.
//
// Invariant: at most one session with IsActive=true per (user, exam). A session
// leaves the active state exactly once, either through an explicit finish or
// through the expiry sweep; the two paths race through the conditional claim in
// SessionRepository.ClaimFinalize.
type ExamSession struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Token  string `json:"token" gorm:"not null;uniqueIndex;size:36"`
	UserID uint   `json:"user_id" gorm:"not null;index:idx_sessions_user_exam"`
	ExamID uint   `json:"exam_id" gorm:"not null;index:idx_sessions_user_exam"`

	// Timing
	StartedAt     time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index"`
	FinishedAt    *time.Time `json:"finished_at"`
	TimeRemaining int        `json:"time_remaining"` // seconds, snapshot at last touch

	// Lifecycle flags, mutated only through the claim
	IsActive    bool `json:"is_active" gorm:"default:true;index"`
	IsCompleted bool `json:"is_completed" gorm:"default:false"`

	// Client metadata, informational only
	IPAddress  *string        `json:"ip_address" gorm:"size:45"`
	UserAgent  *string        `json:"user_agent" gorm:"type:text"`
	ClientMeta datatypes.JSON `json:"client_meta" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    Exam            `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Answers []SessionAnswer `json:"answers,omitempty" gorm:"foreignKey:SessionID"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

// SessionAnswer holds one submitted answer per (session, question). Upserted
// while the session is open; immutable once the session is inactive.
type SessionAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	SessionID  uint `json:"session_id" gorm:"not null;uniqueIndex:idx_answers_session_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_session_question"`

	Answer    string `json:"answer" gorm:"type:text"`
	TimeTaken int    `json:"time_taken"` // seconds spent on this question
	IsCorrect bool   `json:"is_correct"`
	IsFinal   bool   `json:"is_final" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionAnswer) TableName() string {
	return "session_answers"
}
