package repositories

import (
	"context"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

// SessionRepository stores live attempts and their answers.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ExamSession) error
	GetByToken(ctx context.Context, token string) (*models.ExamSession, error)
	GetByID(ctx context.Context, id uint) (*models.ExamSession, error)

	// Active attempt management
	GetActive(ctx context.Context, userID, examID uint) (*models.ExamSession, error)
	HasCompleted(ctx context.Context, userID, examID uint) (bool, error)
	UpdateTimeRemaining(ctx context.Context, id uint, remaining int) error

	// ClaimFinalize marks the session inactive+completed only if it is still
	// active, as one conditional update. Returns false when another actor won
	// the claim first; callers must treat that as a benign no-op.
	ClaimFinalize(ctx context.Context, id uint, finishedAt time.Time) (bool, error)

	// FindExpiredActive returns sessions with IsActive=true and expiry strictly
	// before now, for the expiry sweep.
	FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExamSession, error)

	// Answer management, keyed by (session, question)
	UpsertAnswer(ctx context.Context, answer *models.SessionAnswer) error
	GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error)
	MarkAnswersFinal(ctx context.Context, sessionID uint) error
}
