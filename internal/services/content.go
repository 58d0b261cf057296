package services

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

// ContentResolver is the engine's view of the question catalog. Satisfied by
// the storage-backed repository directly or by the redis content cache in
// front of it.
type ContentResolver interface {
	ResolveQuestion(ctx context.Context, id uint) (*models.Question, error)
	ResolveQuestions(ctx context.Context, ids []uint) ([]*models.Question, error)
}
