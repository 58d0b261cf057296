package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamScheduled ExamStatus = "Scheduled"
	ExamActive    ExamStatus = "Active"
	ExamCompleted ExamStatus = "Completed"
)

type Exam struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	SubjectID   uint    `json:"subject_id" gorm:"not null;index"`
	ClassLevel  string  `json:"class_level" gorm:"size:50"`

	// Scheduling
	ScheduledStart time.Time `json:"scheduled_start" gorm:"not null;index"`
	Duration       int       `json:"duration" gorm:"not null" validate:"required,min=5,max=300"` // minutes

	// Content: ordered question IDs resolved through the content catalog
	QuestionIDs datatypes.JSONSlice[uint] `json:"question_ids" gorm:"type:jsonb"`

	PassingScore     int        `json:"passing_score" gorm:"not null" validate:"required,min=0,max=100"`
	Status           ExamStatus `json:"status" gorm:"default:Scheduled;index" validate:"omitempty,oneof=Scheduled Active Completed"`
	ParticipantCount int        `json:"participant_count" gorm:"default:0"`

	// Metadata
	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Registrations []Registration `json:"registrations,omitempty" gorm:"foreignKey:ExamID"`
	Sessions      []ExamSession  `json:"sessions,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// Registration records a user's intent to attempt an exam. At most one per
// (user, exam); Attended flips when a session is created from it.
type Registration struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_registrations_user_exam"`
	ExamID   uint `json:"exam_id" gorm:"not null;uniqueIndex:idx_registrations_user_exam"`
	Attended bool `json:"attended" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Exam Exam `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
}

func (Registration) TableName() string {
	return "registrations"
}
