package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// FinalizerService turns closed sessions and closed contests into immutable
// results. Callers must win the storage-level claim before invoking
// FinalizeSession; the finalizer itself never races.
type FinalizerService interface {
	// FinalizeSession scores the session and persists its result exactly once.
	// expired marks sweep-driven closure (affects only the emitted event).
	FinalizeSession(ctx context.Context, session *models.ExamSession, expired bool) (*models.ExamResult, error)

	// FinalizeContest aggregates submissions into per-user contest results and
	// reranks. Safe to call once per contest, by whichever actor completed it.
	FinalizeContest(ctx context.Context, contest *models.Contest) error
}

type finalizerService struct {
	repo      repositories.Repository
	ranking   RankingService
	publisher events.EventPublisher
	clock     utils.Clock
	logger    utils.Logger
}

func NewFinalizerService(
	repo repositories.Repository,
	ranking RankingService,
	publisher events.EventPublisher,
	clock utils.Clock,
	logger utils.Logger,
) FinalizerService {
	return &finalizerService{
		repo:      repo,
		ranking:   ranking,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (s *finalizerService) FinalizeSession(ctx context.Context, session *models.ExamSession, expired bool) (*models.ExamResult, error) {
	exam, err := s.repo.Exam().GetByID(ctx, session.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	answers, err := s.repo.Session().GetAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	result := scoreSession(exam, session, answers, s.clock.Now())

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Session().MarkAnswersFinal(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to seal answers: %w", err)
		}
		return tx.Result().Create(ctx, result)
	})
	if err != nil {
		// A result already written for this (user, exam) means a double
		// finalize slipped past the claim; the unique index is the backstop.
		existing, getErr := s.repo.Result().GetByUserAndExam(ctx, session.UserID, session.ExamID)
		if getErr == nil {
			s.logger.WarnContext(ctx, "duplicate finalize blocked by result uniqueness",
				"session_id", session.ID, "result_id", existing.ID)
			return existing, nil
		}
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	if _, err := s.ranking.RerankExam(ctx, session.ExamID); err != nil {
		s.logger.ErrorContext(ctx, "rerank after finalize failed",
			"exam_id", session.ExamID, "error", err)
	}

	event := events.NewSessionFinalizedEvent(
		session.ID, session.ExamID, session.UserID,
		float64(result.Score), result.Passed, expired, result.FinalizedAt)
	if err := s.publisher.PublishEngineEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish session finalized event", "error", err)
	}

	s.logger.InfoContext(ctx, "session finalized",
		"session_id", session.ID,
		"exam_id", session.ExamID,
		"user_id", session.UserID,
		"score", result.Score,
		"passed", result.Passed,
		"expired", expired)

	return result, nil
}

// scoreSession computes the result row from the sealed answers. The score is
// the percentage of correct answers over the exam's full question list,
// rounded to the nearest integer; questions never answered count against the
// total.
func scoreSession(exam *models.Exam, session *models.ExamSession, answers []*models.SessionAnswer, now time.Time) *models.ExamResult {
	total := len(exam.QuestionIDs)

	var correct, timeTaken int
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
		timeTaken += a.TimeTaken
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) * 100 / float64(total)))
	}

	finalizedAt := now
	if session.FinishedAt != nil {
		finalizedAt = *session.FinishedAt
	}

	return &models.ExamResult{
		UserID:         session.UserID,
		ExamID:         session.ExamID,
		SessionID:      session.ID,
		Score:          score,
		Correct:        correct,
		Incorrect:      len(answers) - correct,
		Unanswered:     total - len(answers),
		TotalQuestions: total,
		TimeTaken:      timeTaken,
		Passed:         score >= exam.PassingScore,
		FinalizedAt:    finalizedAt,
	}
}

func (s *finalizerService) FinalizeContest(ctx context.Context, contest *models.Contest) error {
	aggregates, err := s.repo.ContestSubmission().AggregateByUser(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("failed to aggregate submissions: %w", err)
	}

	now := s.clock.Now()
	created := 0
	for _, agg := range aggregates {
		timeTaken := int(agg.LastSubmittedAt.Sub(contest.StartTime).Seconds())
		if timeTaken < 0 {
			timeTaken = 0
		}

		result := &models.ContestResult{
			ContestID:   contest.ID,
			UserID:      agg.UserID,
			TotalPoints: agg.TotalPoints,
			Submissions: agg.Submissions,
			Correct:     agg.Correct,
			TimeTaken:   timeTaken,
			FinalizedAt: now,
		}
		if err := s.repo.ContestResult().Create(ctx, result); err != nil {
			// Keep going; one user's row must not block the rest. A duplicate
			// from a repeated close is absorbed by the unique index.
			s.logger.ErrorContext(ctx, "failed to persist contest result",
				"contest_id", contest.ID, "user_id", agg.UserID, "error", err)
			continue
		}
		created++
	}

	if _, err := s.ranking.RerankContest(ctx, contest.ID); err != nil {
		s.logger.ErrorContext(ctx, "contest rerank failed", "contest_id", contest.ID, "error", err)
	}

	event := events.NewContestFinalizedEvent(contest.ID, created, now)
	if err := s.publisher.PublishEngineEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish contest finalized event", "error", err)
	}

	s.logger.InfoContext(ctx, "contest finalized",
		"contest_id", contest.ID, "results", created)
	return nil
}
