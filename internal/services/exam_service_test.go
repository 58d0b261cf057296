package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/EduCore-2025/exam-engine/internal/errors"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

func newExamService(env *testEnv) ExamService {
	return NewExamService(env.repo, utils.NewValidator(), utils.NewDevelopmentLogger())
}

func TestExamCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := newExamService(env)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		exam, err := svc.Create(ctx, &CreateExamRequest{
			Title:          "Midterm",
			SubjectID:      1,
			ScheduledStart: env.clock.Current.Add(time.Hour),
			Duration:       60,
			QuestionIDs:    []uint{1, 2, 3},
			PassingScore:   60,
			CreatedBy:      99,
		})
		require.NoError(t, err)
		require.Equal(t, models.ExamScheduled, exam.Status)
		require.True(t, exam.ID > 0)
	})

	t.Run("rejects out-of-range duration", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateExamRequest{
			Title:          "Sprint",
			SubjectID:      1,
			ScheduledStart: env.clock.Current,
			Duration:       2,
			QuestionIDs:    []uint{1},
			CreatedBy:      99,
		})
		require.Error(t, err)

		var verrs apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
	})

	t.Run("rejects empty question list", func(t *testing.T) {
		_, err := svc.Create(ctx, &CreateExamRequest{
			Title:          "Empty",
			SubjectID:      1,
			ScheduledStart: env.clock.Current,
			Duration:       60,
			CreatedBy:      99,
		})
		require.Error(t, err)
	})
}

func TestExamTransitions(t *testing.T) {
	env := newTestEnv(t)
	svc := newExamService(env)
	ctx := context.Background()

	exam, err := svc.Create(ctx, &CreateExamRequest{
		Title:          "Midterm",
		SubjectID:      1,
		ScheduledStart: env.clock.Current,
		Duration:       60,
		QuestionIDs:    []uint{1},
		PassingScore:   60,
		CreatedBy:      99,
	})
	require.NoError(t, err)

	t.Run("complete before activate fails", func(t *testing.T) {
		err := svc.Complete(ctx, exam.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	require.NoError(t, svc.Activate(ctx, exam.ID))

	stored, err := svc.Get(ctx, exam.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExamActive, stored.Status)

	t.Run("activate is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Activate(ctx, exam.ID))
	})

	require.NoError(t, svc.Complete(ctx, exam.ID))

	t.Run("complete is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Complete(ctx, exam.ID))
	})

	t.Run("activate after completion fails", func(t *testing.T) {
		err := svc.Activate(ctx, exam.ID)
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		require.Equal(t, string(models.ExamCompleted), stateErr.Current)
	})

	t.Run("unknown exam", func(t *testing.T) {
		require.ErrorIs(t, svc.Activate(ctx, 9999), ErrExamNotFound)
	})
}

type sweepRaceExamRepo struct {
	repositories.Repository
	exams *sweepRaceExams
}

func (r *sweepRaceExamRepo) Exam() repositories.ExamRepository { return r.exams }

type sweepRaceExams struct {
	repositories.ExamRepository
	afterGet func()
}

func (r *sweepRaceExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := r.ExamRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.afterGet != nil {
		r.afterGet()
	}
	return exam, nil
}

// A concurrent caller landing the same transition between this caller's read
// and its conditional update counts as already-done.
func TestExamTransitionLosesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exam := env.seedExam(t, 60)

	exams := &sweepRaceExams{ExamRepository: env.repo.Exam()}
	var once sync.Once
	exams.afterGet = func() {
		once.Do(func() {
			ok, err := env.repo.Exam().TransitionStatus(ctx, exam.ID, models.ExamScheduled, models.ExamActive)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
	svc := NewExamService(&sweepRaceExamRepo{Repository: env.repo, exams: exams}, utils.NewValidator(), utils.NewDevelopmentLogger())

	require.NoError(t, svc.Activate(ctx, exam.ID))

	stored, err := env.repo.Exam().GetByID(ctx, exam.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExamActive, stored.Status)
}
