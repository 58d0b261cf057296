package postgres

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

// QuestionPostgreSQL reads the content catalog's question rows. The catalog
// service owns writes; this side only resolves grading data by ID.
type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) ResolveQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) ResolveQuestions(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, err
	}

	// Preserve the caller's ordering; exams carry an ordered question list.
	byID := make(map[uint]*models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}
	ordered := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			ordered = append(ordered, question)
		}
	}
	return ordered, nil
}
