package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// ===== REQUEST / RESPONSE TYPES =====

type StartSessionRequest struct {
	ExamID     uint           `json:"exam_id" validate:"required"`
	IPAddress  *string        `json:"ip_address" validate:"omitempty,max=45"`
	UserAgent  *string        `json:"user_agent"`
	ClientMeta datatypes.JSON `json:"client_meta"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
	TimeTaken  int    `json:"time_taken" validate:"min=0"`
}

type FinishSessionRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"dive"`
}

// QuestionView is the question as shown to a participant. The correct answer
// never leaves the service.
type QuestionView struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Text    string              `json:"text"`
	Options datatypes.JSON      `json:"options,omitempty"`
	Points  int                 `json:"points"`
}

type SessionResponse struct {
	Token         string         `json:"token"`
	ExamID        uint           `json:"exam_id"`
	StartedAt     time.Time      `json:"started_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	TimeRemaining int            `json:"time_remaining"` // seconds
	Resumed       bool           `json:"resumed"`
	Questions     []QuestionView `json:"questions"`
}

type AnswerResponse struct {
	QuestionID    uint `json:"question_id"`
	Accepted      bool `json:"accepted"`
	TimeRemaining int  `json:"time_remaining"`
}

type LeaderboardResponse struct {
	ExamID  uint                 `json:"exam_id"`
	Total   int64                `json:"total"`
	Entries []*models.ExamResult `json:"entries"`
}

// ===== SERVICE =====

// SessionService is the participant-facing surface of the engine: registration,
// the timed attempt itself, and result reads.
type SessionService interface {
	Register(ctx context.Context, examID, userID uint) (*models.Registration, error)
	Start(ctx context.Context, req *StartSessionRequest, userID uint) (*SessionResponse, error)
	SubmitAnswer(ctx context.Context, token string, userID uint, req *SubmitAnswerRequest) (*AnswerResponse, error)
	Finish(ctx context.Context, token string, userID uint, req *FinishSessionRequest) (*models.ExamResult, error)
	GetResult(ctx context.Context, examID, userID uint) (*models.ExamResult, error)
	GetLeaderboard(ctx context.Context, examID uint, filters repositories.LeaderboardFilters) (*LeaderboardResponse, error)
}

type sessionService struct {
	repo      repositories.Repository
	content   ContentResolver
	finalizer FinalizerService
	publisher events.EventPublisher
	clock     utils.Clock
	validator *utils.Validator
	logger    utils.Logger
}

func NewSessionService(
	repo repositories.Repository,
	content ContentResolver,
	finalizer FinalizerService,
	publisher events.EventPublisher,
	clock utils.Clock,
	validator *utils.Validator,
	logger utils.Logger,
) SessionService {
	return &sessionService{
		repo:      repo,
		content:   content,
		finalizer: finalizer,
		publisher: publisher,
		clock:     clock,
		validator: validator,
		logger:    logger,
	}
}

// Register records the user's intent to attempt the exam. Registration is
// open only while the exam is still scheduled and its start time has not
// passed; duplicate registrations are rejected.
func (s *sessionService) Register(ctx context.Context, examID, userID uint) (*models.Registration, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamScheduled || !s.clock.Now().Before(exam.ScheduledStart) {
		return nil, ErrRegistrationClosed
	}

	exists, err := s.repo.Registration().Exists(ctx, userID, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	reg := &models.Registration{UserID: userID, ExamID: examID}
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Registration().Create(ctx, reg); err != nil {
			return fmt.Errorf("failed to create registration: %w", err)
		}
		return tx.Exam().IncrementParticipants(ctx, examID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered for exam", "exam_id", examID, "user_id", userID)
	return reg, nil
}

// Start opens the user's timed session, or resumes the active one. Resume
// never extends the deadline: remaining time is always expiry minus now.
func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, userID uint) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamActive {
		return nil, ErrExamNotActive
	}

	now := s.clock.Now()
	windowEnd := exam.ScheduledStart.Add(time.Duration(exam.Duration) * time.Minute)
	if now.Before(exam.ScheduledStart) || !now.Before(windowEnd) {
		return nil, ErrOutsideWindow
	}

	reg, err := s.repo.Registration().Get(ctx, userID, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	completed, err := s.repo.Session().HasCompleted(ctx, userID, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check completion: %w", err)
	}
	if completed {
		return nil, ErrAlreadyCompleted
	}

	active, err := s.repo.Session().GetActive(ctx, userID, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if active != nil {
		if !now.Before(active.ExpiresAt) {
			// Expired but not yet swept; close it here rather than hand the
			// user a dead session.
			if err := s.closeExpired(ctx, active); err != nil {
				return nil, err
			}
			return nil, ErrAlreadyCompleted
		}
		return s.resume(ctx, exam, active, now)
	}

	session := &models.ExamSession{
		Token:         uuid.NewString(),
		UserID:        userID,
		ExamID:        req.ExamID,
		StartedAt:     now,
		ExpiresAt:     now.Add(time.Duration(exam.Duration) * time.Minute),
		TimeRemaining: exam.Duration * 60,
		IsActive:      true,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		ClientMeta:    req.ClientMeta,
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Session().Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return tx.Registration().MarkAttended(ctx, reg.ID)
	})
	if err != nil {
		return nil, err
	}

	questions, err := s.questionViews(ctx, exam)
	if err != nil {
		return nil, err
	}

	event := events.NewSessionStartedEvent(session.ID, exam.ID, userID, session.StartedAt, session.ExpiresAt)
	if err := s.publisher.PublishEngineEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish session started event", "error", err)
	}

	s.logger.InfoContext(ctx, "session started",
		"session_id", session.ID,
		"exam_id", exam.ID,
		"user_id", userID,
		"expires_at", session.ExpiresAt)

	return &SessionResponse{
		Token:         session.Token,
		ExamID:        exam.ID,
		StartedAt:     session.StartedAt,
		ExpiresAt:     session.ExpiresAt,
		TimeRemaining: session.TimeRemaining,
		Questions:     questions,
	}, nil
}

func (s *sessionService) resume(ctx context.Context, exam *models.Exam, session *models.ExamSession, now time.Time) (*SessionResponse, error) {
	remaining := int(session.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	if err := s.repo.Session().UpdateTimeRemaining(ctx, session.ID, remaining); err != nil {
		return nil, fmt.Errorf("failed to update remaining time: %w", err)
	}

	questions, err := s.questionViews(ctx, exam)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session resumed",
		"session_id", session.ID, "remaining", remaining)

	return &SessionResponse{
		Token:         session.Token,
		ExamID:        exam.ID,
		StartedAt:     session.StartedAt,
		ExpiresAt:     session.ExpiresAt,
		TimeRemaining: remaining,
		Resumed:       true,
		Questions:     questions,
	}, nil
}

// SubmitAnswer grades and stores one answer. Resubmission of the same question
// overwrites the previous answer while the session stays open.
func (s *sessionService) SubmitAnswer(ctx context.Context, token string, userID uint, req *SubmitAnswerRequest) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, exam, err := s.openSession(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	if !containsID(exam.QuestionIDs, req.QuestionID) {
		return nil, ErrQuestionNotInExam
	}

	question, err := s.content.ResolveQuestion(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to resolve question: %w", err)
	}

	answer := &models.SessionAnswer{
		SessionID:  session.ID,
		QuestionID: req.QuestionID,
		Answer:     req.Answer,
		TimeTaken:  req.TimeTaken,
		IsCorrect:  Evaluate(question, req.Answer),
	}
	if err := s.repo.Session().UpsertAnswer(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}

	remaining := int(session.ExpiresAt.Sub(s.clock.Now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	if err := s.repo.Session().UpdateTimeRemaining(ctx, session.ID, remaining); err != nil {
		s.logger.WarnContext(ctx, "failed to update remaining time", "session_id", session.ID, "error", err)
	}

	return &AnswerResponse{
		QuestionID:    req.QuestionID,
		Accepted:      true,
		TimeRemaining: remaining,
	}, nil
}

// Finish closes the session through the storage claim. A finish call that
// races the expiry sweep, or arrives after it, still returns the score: a
// lost claim falls back to the already-persisted result.
func (s *sessionService) Finish(ctx context.Context, token string, userID uint, req *FinishSessionRequest) (*models.ExamResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByToken(ctx, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotOwner
	}
	if !session.IsActive {
		return s.sweptResult(ctx, session.ID)
	}

	now := s.clock.Now()
	expired := !now.Before(session.ExpiresAt)

	// Flush answers sent with the finish call before sealing. Once the
	// deadline has passed nothing more is accepted.
	if !expired {
		exam, err := s.getExam(ctx, session.ExamID)
		if err != nil {
			return nil, err
		}
		for i := range req.Answers {
			a := &req.Answers[i]
			if !containsID(exam.QuestionIDs, a.QuestionID) {
				continue
			}
			question, err := s.content.ResolveQuestion(ctx, a.QuestionID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve question %d: %w", a.QuestionID, err)
			}
			answer := &models.SessionAnswer{
				SessionID:  session.ID,
				QuestionID: a.QuestionID,
				Answer:     a.Answer,
				TimeTaken:  a.TimeTaken,
				IsCorrect:  Evaluate(question, a.Answer),
			}
			if err := s.repo.Session().UpsertAnswer(ctx, answer); err != nil {
				return nil, fmt.Errorf("failed to store final answer: %w", err)
			}
		}
	}

	finishedAt := now
	if expired {
		finishedAt = session.ExpiresAt
	}
	claimed, err := s.repo.Session().ClaimFinalize(ctx, session.ID, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to claim session: %w", err)
	}
	if !claimed {
		// The expiry sweep won; its result stands.
		s.logger.InfoContext(ctx, "finish lost claim, returning swept result",
			"session_id", session.ID)
		return s.sweptResult(ctx, session.ID)
	}

	session.FinishedAt = &finishedAt
	return s.finalizer.FinalizeSession(ctx, session, expired)
}

// sweptResult fetches the result persisted by whichever actor closed the
// session first.
func (s *sessionService) sweptResult(ctx context.Context, sessionID uint) (*models.ExamResult, error) {
	result, err := s.repo.Result().GetBySession(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFinalized
		}
		return nil, fmt.Errorf("failed to fetch result for closed session: %w", err)
	}
	return result, nil
}

func (s *sessionService) GetResult(ctx context.Context, examID, userID uint) (*models.ExamResult, error) {
	result, err := s.repo.Result().GetByUserAndExam(ctx, userID, examID)
	if err == nil {
		return result, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	active, aerr := s.repo.Session().GetActive(ctx, userID, examID)
	if aerr == nil && active != nil {
		return nil, ErrResultNotFinalized
	}
	return nil, ErrResultNotFound
}

func (s *sessionService) GetLeaderboard(ctx context.Context, examID uint, filters repositories.LeaderboardFilters) (*LeaderboardResponse, error) {
	if _, err := s.getExam(ctx, examID); err != nil {
		return nil, err
	}

	entries, total, err := s.repo.Result().Leaderboard(ctx, examID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	return &LeaderboardResponse{
		ExamID:  examID,
		Total:   total,
		Entries: entries,
	}, nil
}

// ===== HELPERS =====

func (s *sessionService) getExam(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// openSession loads a session by token and enforces ownership and liveness.
// An expired-but-unswept session is closed on the spot and reported closed.
func (s *sessionService) openSession(ctx context.Context, token string, userID uint) (*models.ExamSession, *models.Exam, error) {
	session, err := s.repo.Session().GetByToken(ctx, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, nil, ErrSessionNotOwner
	}
	if !session.IsActive {
		return nil, nil, ErrSessionClosed
	}
	if !s.clock.Now().Before(session.ExpiresAt) {
		if err := s.closeExpired(ctx, session); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrSessionClosed
	}

	exam, err := s.getExam(ctx, session.ExamID)
	if err != nil {
		return nil, nil, err
	}
	return session, exam, nil
}

func (s *sessionService) closeExpired(ctx context.Context, session *models.ExamSession) error {
	claimed, err := s.repo.Session().ClaimFinalize(ctx, session.ID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to claim expired session: %w", err)
	}
	if !claimed {
		return nil
	}
	finishedAt := session.ExpiresAt
	session.FinishedAt = &finishedAt
	if _, err := s.finalizer.FinalizeSession(ctx, session, true); err != nil {
		return fmt.Errorf("failed to finalize expired session: %w", err)
	}
	return nil
}

func (s *sessionService) questionViews(ctx context.Context, exam *models.Exam) ([]QuestionView, error) {
	questions, err := s.content.ResolveQuestions(ctx, exam.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve questions: %w", err)
	}

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		if q == nil {
			continue
		}
		views = append(views, QuestionView{
			ID:      q.ID,
			Type:    q.Type,
			Text:    q.Text,
			Options: q.Options,
			Points:  q.Points,
		})
	}
	return views, nil
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
