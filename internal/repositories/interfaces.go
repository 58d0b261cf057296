package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories. WithTx runs fn against a
// repository bound to one transaction; returning an error rolls back.
type Repository interface {
	Exam() ExamRepository
	Registration() RegistrationRepository
	Session() SessionRepository
	Result() ResultRepository
	Contest() ContestRepository
	ContestParticipant() ContestParticipantRepository
	ContestSubmission() ContestSubmissionRepository
	ContestResult() ContestResultRepository
	Question() QuestionRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError reports whether err is the storage layer's "no rows" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type LeaderboardFilters struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ExamFilters struct {
	Status    *models.ExamStatus `json:"status"`
	SubjectID *uint              `json:"subject_id"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// ===== AGGREGATES =====

// ContestAggregate is the per-user rollup of contest submissions computed at
// contest close.
type ContestAggregate struct {
	UserID          uint      `json:"user_id"`
	TotalPoints     int       `json:"total_points"`
	Submissions     int       `json:"submissions"`
	Correct         int       `json:"correct"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

// RankUpdate carries one recomputed standing back to storage.
type RankUpdate struct {
	ID         uint    `json:"id"`
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
}
