package repositories

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

// ResultRepository stores finalized exam results. Uniqueness over (user, exam)
// backs the exactly-once finalization guarantee at the storage level.
type ResultRepository interface {
	Create(ctx context.Context, result *models.ExamResult) error
	GetByUserAndExam(ctx context.Context, userID, examID uint) (*models.ExamResult, error)
	GetBySession(ctx context.Context, sessionID uint) (*models.ExamResult, error)

	// ListByExam returns every result for one exam, unordered; the ranking
	// engine sorts in memory.
	ListByExam(ctx context.Context, examID uint) ([]*models.ExamResult, error)

	// Leaderboard returns results ordered by rank ascending, paged.
	Leaderboard(ctx context.Context, examID uint, filters LeaderboardFilters) ([]*models.ExamResult, int64, error)

	UpdateRanks(ctx context.Context, updates []RankUpdate) error
}
