package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateContestRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	ProblemIDs  []uint    `json:"problem_ids" validate:"required,min=1"`
	CreatedBy   uint      `json:"-"`
}

type ContestSubmissionRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// ContestStanding is one live or final leaderboard row.
type ContestStanding struct {
	UserID      uint    `json:"user_id"`
	TotalPoints int     `json:"total_points"`
	Submissions int     `json:"submissions"`
	Correct     int     `json:"correct"`
	TimeTaken   int     `json:"time_taken"`
	Rank        int     `json:"rank"`
	Percentile  float64 `json:"percentile"`
}

type ContestLeaderboardResponse struct {
	ContestID uint                 `json:"contest_id"`
	Status    models.ContestStatus `json:"status"`
	Live      bool                 `json:"live"`
	Total     int64                `json:"total"`
	Entries   []ContestStanding    `json:"entries"`
}

// ===== SERVICE =====

// ContestService covers the contest flow: joining, per-question submissions
// graded on the spot, live and final leaderboards, and the administrative
// start/end overrides. Status transitions go through the same guarded update
// the scheduler uses, so an admin call racing a sweep stays monotonic.
type ContestService interface {
	Create(ctx context.Context, req *CreateContestRequest) (*models.Contest, error)
	Get(ctx context.Context, contestID uint) (*models.Contest, error)
	Join(ctx context.Context, contestID, userID uint) (*models.ContestParticipant, error)
	SubmitAnswer(ctx context.Context, contestID, userID uint, req *ContestSubmissionRequest) (*models.ContestSubmission, error)
	GetLeaderboard(ctx context.Context, contestID uint, filters repositories.LeaderboardFilters) (*ContestLeaderboardResponse, error)
	GetResult(ctx context.Context, contestID, userID uint) (*models.ContestResult, error)

	// Administrative overrides; both are idempotent when the contest already
	// reached the target status.
	Start(ctx context.Context, contestID uint) error
	End(ctx context.Context, contestID uint) error
}

type contestService struct {
	repo      repositories.Repository
	content   ContentResolver
	finalizer FinalizerService
	publisher events.EventPublisher
	clock     utils.Clock
	validator *utils.Validator
	logger    utils.Logger
}

func NewContestService(
	repo repositories.Repository,
	content ContentResolver,
	finalizer FinalizerService,
	publisher events.EventPublisher,
	clock utils.Clock,
	validator *utils.Validator,
	logger utils.Logger,
) ContestService {
	return &contestService{
		repo:      repo,
		content:   content,
		finalizer: finalizer,
		publisher: publisher,
		clock:     clock,
		validator: validator,
		logger:    logger,
	}
}

func (s *contestService) Create(ctx context.Context, req *CreateContestRequest) (*models.Contest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	contest := &models.Contest{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Duration:    int(req.EndTime.Sub(req.StartTime).Minutes()),
		ProblemIDs:  req.ProblemIDs,
		Status:      models.ContestUpcoming,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.repo.Contest().Create(ctx, contest); err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}

	s.logger.InfoContext(ctx, "contest created",
		"contest_id", contest.ID, "start_time", contest.StartTime, "end_time", contest.EndTime)
	return contest, nil
}

func (s *contestService) Get(ctx context.Context, contestID uint) (*models.Contest, error) {
	return s.getContest(ctx, contestID)
}

// Join admits a user before or during the contest, once.
func (s *contestService) Join(ctx context.Context, contestID, userID uint) (*models.ContestParticipant, error) {
	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status == models.ContestCompleted {
		return nil, ErrContestNotActive
	}

	exists, err := s.repo.ContestParticipant().Exists(ctx, contestID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if exists {
		return nil, ErrAlreadyJoined
	}

	participant := &models.ContestParticipant{
		ContestID: contestID,
		UserID:    userID,
		JoinedAt:  s.clock.Now(),
	}
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.ContestParticipant().Create(ctx, participant); err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}
		return tx.Contest().IncrementParticipants(ctx, contestID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user joined contest", "contest_id", contestID, "user_id", userID)
	return participant, nil
}

// SubmitAnswer grades one problem submission immediately. One submission per
// (user, question); repeats are rejected rather than overwritten.
func (s *contestService) SubmitAnswer(ctx context.Context, contestID, userID uint, req *ContestSubmissionRequest) (*models.ContestSubmission, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if contest.Status != models.ContestActive || now.Before(contest.StartTime) || !now.Before(contest.EndTime) {
		return nil, ErrContestNotActive
	}

	joined, err := s.repo.ContestParticipant().Exists(ctx, contestID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !joined {
		return nil, ErrContestNotJoined
	}

	if !containsID(contest.ProblemIDs, req.QuestionID) {
		return nil, ErrQuestionNotInContest
	}

	if _, err := s.repo.ContestSubmission().GetByUserAndQuestion(ctx, contestID, userID, req.QuestionID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check submission: %w", err)
	}

	question, err := s.content.ResolveQuestion(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to resolve question: %w", err)
	}

	sub := &models.ContestSubmission{
		ContestID:   contestID,
		UserID:      userID,
		QuestionID:  req.QuestionID,
		Answer:      req.Answer,
		IsCorrect:   Evaluate(question, req.Answer),
		SubmittedAt: now,
	}
	if sub.IsCorrect {
		sub.Points = question.Points
	}
	if err := s.repo.ContestSubmission().Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.logger.InfoContext(ctx, "contest submission graded",
		"contest_id", contestID,
		"user_id", userID,
		"question_id", req.QuestionID,
		"correct", sub.IsCorrect,
		"points", sub.Points)
	return sub, nil
}

// GetLeaderboard serves the final standings once the contest closed, and a
// live recomputation from submissions while it runs.
func (s *contestService) GetLeaderboard(ctx context.Context, contestID uint, filters repositories.LeaderboardFilters) (*ContestLeaderboardResponse, error) {
	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	if contest.Status == models.ContestCompleted {
		results, total, err := s.repo.ContestResult().Leaderboard(ctx, contestID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to read contest leaderboard: %w", err)
		}
		entries := make([]ContestStanding, len(results))
		for i, r := range results {
			entries[i] = ContestStanding{
				UserID:      r.UserID,
				TotalPoints: r.TotalPoints,
				Submissions: r.Submissions,
				Correct:     r.Correct,
				TimeTaken:   r.TimeTaken,
				Rank:        r.Rank,
				Percentile:  r.Percentile,
			}
		}
		return &ContestLeaderboardResponse{
			ContestID: contestID,
			Status:    contest.Status,
			Total:     total,
			Entries:   entries,
		}, nil
	}

	return s.liveLeaderboard(ctx, contest, filters)
}

// liveLeaderboard ranks the current submission aggregates in memory. Live rows
// carry no persisted rank; ordering matches what finalization will produce.
func (s *contestService) liveLeaderboard(ctx context.Context, contest *models.Contest, filters repositories.LeaderboardFilters) (*ContestLeaderboardResponse, error) {
	aggregates, err := s.repo.ContestSubmission().AggregateByUser(ctx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions: %w", err)
	}

	entries := make([]ContestStanding, len(aggregates))
	for i, agg := range aggregates {
		timeTaken := int(agg.LastSubmittedAt.Sub(contest.StartTime).Seconds())
		if timeTaken < 0 {
			timeTaken = 0
		}
		entries[i] = ContestStanding{
			UserID:      agg.UserID,
			TotalPoints: agg.TotalPoints,
			Submissions: agg.Submissions,
			Correct:     agg.Correct,
			TimeTaken:   timeTaken,
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].TimeTaken != entries[j].TimeTaken {
			return entries[i].TimeTaken < entries[j].TimeTaken
		}
		return entries[i].UserID < entries[j].UserID
	})

	n := len(entries)
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Percentile = percentile(i+1, n)
	}

	total := int64(n)
	if filters.Offset > 0 {
		if filters.Offset >= n {
			entries = nil
		} else {
			entries = entries[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(entries) > filters.Limit {
		entries = entries[:filters.Limit]
	}

	return &ContestLeaderboardResponse{
		ContestID: contest.ID,
		Status:    contest.Status,
		Live:      true,
		Total:     total,
		Entries:   entries,
	}, nil
}

func (s *contestService) GetResult(ctx context.Context, contestID, userID uint) (*models.ContestResult, error) {
	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != models.ContestCompleted {
		return nil, ErrContestNotClosed
	}

	result, err := s.repo.ContestResult().GetByUserAndContest(ctx, userID, contestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get contest result: %w", err)
	}
	return result, nil
}

// Start moves the contest to Active ahead of its scheduled start.
func (s *contestService) Start(ctx context.Context, contestID uint) error {
	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return err
	}

	ok, err := s.repo.Contest().TransitionStatus(ctx, contestID, models.ContestUpcoming, models.ContestActive)
	if err != nil {
		return fmt.Errorf("failed to start contest: %w", err)
	}
	if !ok {
		// Re-read: the sweep may have transitioned the contest after our
		// first fetch, which counts as success-already-done.
		contest, err = s.getContest(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.Status == models.ContestActive {
			return nil
		}
		return NewInvalidStateError("contest", contestID, string(contest.Status), string(models.ContestUpcoming))
	}

	s.publishStatusChanged(ctx, contestID, models.ContestUpcoming, models.ContestActive)
	s.logger.InfoContext(ctx, "contest started", "contest_id", contestID)
	return nil
}

// End moves the contest to Completed and finalizes it. A second closer, admin
// or sweep, observes the transition already done and succeeds without side
// effects.
func (s *contestService) End(ctx context.Context, contestID uint) error {
	contest, err := s.getContest(ctx, contestID)
	if err != nil {
		return err
	}

	ok, err := s.repo.Contest().TransitionStatus(ctx, contestID, models.ContestActive, models.ContestCompleted)
	if err != nil {
		return fmt.Errorf("failed to end contest: %w", err)
	}
	if !ok {
		// Re-read so a closer that lost the race to the sweep sees the
		// completed status instead of its stale pre-update snapshot.
		contest, err = s.getContest(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.Status == models.ContestCompleted {
			return nil
		}
		return NewInvalidStateError("contest", contestID, string(contest.Status), string(models.ContestActive))
	}

	s.publishStatusChanged(ctx, contestID, models.ContestActive, models.ContestCompleted)

	contest.Status = models.ContestCompleted
	if err := s.finalizer.FinalizeContest(ctx, contest); err != nil {
		return fmt.Errorf("failed to finalize contest: %w", err)
	}

	s.logger.InfoContext(ctx, "contest ended", "contest_id", contestID)
	return nil
}

func (s *contestService) getContest(ctx context.Context, contestID uint) (*models.Contest, error) {
	contest, err := s.repo.Contest().GetByID(ctx, contestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

func (s *contestService) publishStatusChanged(ctx context.Context, contestID uint, from, to models.ContestStatus) {
	event := events.NewContestStatusChangedEvent(contestID, string(from), string(to), s.clock.Now())
	if err := s.publisher.PublishEngineEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish contest status event", "error", err)
	}
}
