package repositories

import (
	"context"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

// ContestRepository stores contest definitions. Status moves only through
// TransitionStatus so the scheduler and the admin path cannot race into an
// invalid state.
type ContestRepository interface {
	Create(ctx context.Context, contest *models.Contest) error
	GetByID(ctx context.Context, id uint) (*models.Contest, error)

	// Sweep queries
	FindStartDue(ctx context.Context, now time.Time) ([]*models.Contest, error)
	FindEndDue(ctx context.Context, now time.Time) ([]*models.Contest, error)
	FindArchivable(ctx context.Context, completedBefore time.Time) ([]*models.Contest, error)

	// TransitionStatus applies from->to only if the current status is exactly
	// from. Returns false on a lost race (zero rows matched).
	TransitionStatus(ctx context.Context, id uint, from, to models.ContestStatus) (bool, error)

	IncrementParticipants(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint, at time.Time) error
}

// ContestParticipantRepository owns the (contest, user) join uniqueness.
type ContestParticipantRepository interface {
	Create(ctx context.Context, p *models.ContestParticipant) error
	Exists(ctx context.Context, contestID, userID uint) (bool, error)
	CountByContest(ctx context.Context, contestID uint) (int64, error)
}

// ContestSubmissionRepository owns the (user, question, contest) uniqueness.
type ContestSubmissionRepository interface {
	Upsert(ctx context.Context, sub *models.ContestSubmission) error
	GetByUserAndQuestion(ctx context.Context, contestID, userID, questionID uint) (*models.ContestSubmission, error)
	ListByUser(ctx context.Context, contestID, userID uint) ([]*models.ContestSubmission, error)

	// AggregateByUser rolls up submissions per user for contest finalization.
	AggregateByUser(ctx context.Context, contestID uint) ([]ContestAggregate, error)
}

// ContestResultRepository stores the per-user aggregates written at close.
type ContestResultRepository interface {
	Create(ctx context.Context, result *models.ContestResult) error
	GetByUserAndContest(ctx context.Context, userID, contestID uint) (*models.ContestResult, error)
	ListByContest(ctx context.Context, contestID uint) ([]*models.ContestResult, error)
	Leaderboard(ctx context.Context, contestID uint, filters LeaderboardFilters) ([]*models.ContestResult, int64, error)
	UpdateRanks(ctx context.Context, updates []RankUpdate) error
}

// QuestionRepository is the storage-backed view of the content catalog.
type QuestionRepository interface {
	ResolveQuestion(ctx context.Context, id uint) (*models.Question, error)
	ResolveQuestions(ctx context.Context, ids []uint) ([]*models.Question, error)
}
