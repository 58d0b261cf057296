package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Numeric        QuestionType = "numeric"
	ShortAnswer    QuestionType = "short_answer"
)

// Question is the read model of the external content catalog: everything the
// engine needs to grade a submission. The catalog owns the rows; this service
// only reads them.
type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Type QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Text string       `json:"text" gorm:"type:text"`

	// Options for choice questions: []QuestionOption
	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	CorrectAnswer string `json:"correct_answer" gorm:"not null;type:text"`
	Points        int    `json:"points" gorm:"default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
