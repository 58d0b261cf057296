package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// RankingService recomputes standings from scratch. Incremental maintenance is
// deliberately avoided: a full recompute over one exam or contest is cheap and
// cannot drift.
type RankingService interface {
	RerankExam(ctx context.Context, examID uint) (int, error)
	RerankContest(ctx context.Context, contestID uint) (int, error)
}

type rankingService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	clock     utils.Clock
	logger    utils.Logger
}

func NewRankingService(repo repositories.Repository, publisher events.EventPublisher, clock utils.Clock, logger utils.Logger) RankingService {
	return &rankingService{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// RerankExam recomputes rank and percentile for every result of the exam.
// Higher score ranks first; equal scores break by lower time taken. Returns
// the number of ranked rows.
func (s *rankingService) RerankExam(ctx context.Context, examID uint) (int, error) {
	results, err := s.repo.Result().ListByExam(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("failed to list results: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].TimeTaken != results[j].TimeTaken {
			return results[i].TimeTaken < results[j].TimeTaken
		}
		return results[i].UserID < results[j].UserID
	})

	n := len(results)
	updates := make([]repositories.RankUpdate, n)
	for i, r := range results {
		updates[i] = repositories.RankUpdate{
			ID:         r.ID,
			Rank:       i + 1,
			Percentile: percentile(i+1, n),
		}
	}

	if err := s.repo.Result().UpdateRanks(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to write exam ranks: %w", err)
	}

	s.logger.InfoContext(ctx, "exam reranked", "exam_id", examID, "rows", n)
	s.publishReranked(ctx, &examID, nil, n)
	return n, nil
}

// RerankContest recomputes rank and percentile for every contest result.
// Higher total points rank first; ties break by lower time taken.
func (s *rankingService) RerankContest(ctx context.Context, contestID uint) (int, error) {
	results, err := s.repo.ContestResult().ListByContest(ctx, contestID)
	if err != nil {
		return 0, fmt.Errorf("failed to list contest results: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalPoints != results[j].TotalPoints {
			return results[i].TotalPoints > results[j].TotalPoints
		}
		if results[i].TimeTaken != results[j].TimeTaken {
			return results[i].TimeTaken < results[j].TimeTaken
		}
		return results[i].UserID < results[j].UserID
	})

	n := len(results)
	updates := make([]repositories.RankUpdate, n)
	for i, r := range results {
		updates[i] = repositories.RankUpdate{
			ID:         r.ID,
			Rank:       i + 1,
			Percentile: percentile(i+1, n),
		}
	}

	if err := s.repo.ContestResult().UpdateRanks(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to write contest ranks: %w", err)
	}

	s.logger.InfoContext(ctx, "contest reranked", "contest_id", contestID, "rows", n)
	s.publishReranked(ctx, nil, &contestID, n)
	return n, nil
}

// percentile of the 1-based position pos among n ranked rows: the share of
// participants at or below this row, so rank 1 of 4 is 100.0 and rank 4 is 25.0.
func percentile(pos, n int) float64 {
	return float64(n-pos+1) / float64(n) * 100
}

func (s *rankingService) publishReranked(ctx context.Context, examID, contestID *uint, rows int) {
	event := events.NewResultsRerankedEvent(examID, contestID, rows, s.clock.Now())
	if err := s.publisher.PublishEngineEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish rerank event", "error", err)
	}
}
