package services

import (
	"context"
	"fmt"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

type CreateExamRequest struct {
	Title          string    `json:"title" validate:"required,min=1,max=200"`
	Description    *string   `json:"description" validate:"omitempty,max=1000"`
	SubjectID      uint      `json:"subject_id" validate:"required"`
	ClassLevel     string    `json:"class_level" validate:"omitempty,max=50"`
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	Duration       int       `json:"duration" validate:"required,min=5,max=300"`
	QuestionIDs    []uint    `json:"question_ids" validate:"required,min=1"`
	PassingScore   int       `json:"passing_score" validate:"min=0,max=100"`
	CreatedBy      uint      `json:"-"`
}

// ExamService owns exam definitions and the administrative status
// transitions. Activation and completion are external triggers; the guarded
// repository update keeps them single-shot.
type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error)
	Get(ctx context.Context, examID uint) (*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
	Activate(ctx context.Context, examID uint) error
	Complete(ctx context.Context, examID uint) error
}

type examService struct {
	repo      repositories.Repository
	validator *utils.Validator
	logger    utils.Logger
}

func NewExamService(repo repositories.Repository, validator *utils.Validator, logger utils.Logger) ExamService {
	return &examService{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

func (s *examService) Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:          req.Title,
		Description:    req.Description,
		SubjectID:      req.SubjectID,
		ClassLevel:     req.ClassLevel,
		ScheduledStart: req.ScheduledStart,
		Duration:       req.Duration,
		QuestionIDs:    req.QuestionIDs,
		PassingScore:   req.PassingScore,
		Status:         models.ExamScheduled,
		CreatedBy:      req.CreatedBy,
	}
	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.InfoContext(ctx, "exam created",
		"exam_id", exam.ID,
		"scheduled_start", exam.ScheduledStart,
		"duration_minutes", exam.Duration)
	return exam, nil
}

func (s *examService) Get(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return s.repo.Exam().List(ctx, filters)
}

func (s *examService) Activate(ctx context.Context, examID uint) error {
	return s.transition(ctx, examID, models.ExamScheduled, models.ExamActive)
}

func (s *examService) Complete(ctx context.Context, examID uint) error {
	return s.transition(ctx, examID, models.ExamActive, models.ExamCompleted)
}

func (s *examService) transition(ctx context.Context, examID uint, from, to models.ExamStatus) error {
	if _, err := s.Get(ctx, examID); err != nil {
		return err
	}

	ok, err := s.repo.Exam().TransitionStatus(ctx, examID, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition exam: %w", err)
	}
	if !ok {
		// Re-read after the zero-row update; a concurrent caller may have
		// landed the same transition first, which is not an error.
		exam, err := s.Get(ctx, examID)
		if err != nil {
			return err
		}
		if exam.Status == to {
			return nil
		}
		return NewInvalidStateError("exam", examID, string(exam.Status), string(from))
	}

	s.logger.InfoContext(ctx, "exam status changed",
		"exam_id", examID, "from", from, "to", to)
	return nil
}
