package repositories

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

// ExamRepository reads exam definitions and performs the guarded status
// transitions used by the administrative controls.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)

	// TransitionStatus applies from->to only if the current status is exactly
	// from. Returns false when the conditional update matched zero rows.
	TransitionStatus(ctx context.Context, id uint, from, to models.ExamStatus) (bool, error)

	IncrementParticipants(ctx context.Context, id uint) error
}

// RegistrationRepository owns the (user, exam) uniqueness invariant.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	Get(ctx context.Context, userID, examID uint) (*models.Registration, error)
	Exists(ctx context.Context, userID, examID uint) (bool, error)
	MarkAttended(ctx context.Context, id uint) error
}
