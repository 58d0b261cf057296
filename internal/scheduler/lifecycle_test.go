package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// sweepStore backs the lifecycle tests with just enough of the Repository
// surface the sweeps touch: sessions for expiry, contests for start, end and
// retention.
type sweepStore struct {
	mu       sync.Mutex
	sessions map[uint]*models.ExamSession
	contests map[uint]*models.Contest

	// claimDenied simulates losing the finalize claim to a concurrent finish.
	claimDenied map[uint]bool
}

func newSweepStore() *sweepStore {
	return &sweepStore{
		sessions:    make(map[uint]*models.ExamSession),
		contests:    make(map[uint]*models.Contest),
		claimDenied: make(map[uint]bool),
	}
}

func (s *sweepStore) Exam() repositories.ExamRepository                 { return nil }
func (s *sweepStore) Registration() repositories.RegistrationRepository { return nil }
func (s *sweepStore) Session() repositories.SessionRepository           { return &sweepSessions{s} }
func (s *sweepStore) Result() repositories.ResultRepository             { return nil }
func (s *sweepStore) Contest() repositories.ContestRepository           { return &sweepContests{s} }
func (s *sweepStore) ContestParticipant() repositories.ContestParticipantRepository {
	return nil
}
func (s *sweepStore) ContestSubmission() repositories.ContestSubmissionRepository { return nil }
func (s *sweepStore) ContestResult() repositories.ContestResultRepository         { return nil }
func (s *sweepStore) Question() repositories.QuestionRepository                   { return nil }

func (s *sweepStore) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(s)
}

type sweepSessions struct{ s *sweepStore }

func (r *sweepSessions) Create(ctx context.Context, session *models.ExamSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.ID] = session
	return nil
}

func (r *sweepSessions) GetByToken(ctx context.Context, token string) (*models.ExamSession, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepSessions) GetByID(ctx context.Context, id uint) (*models.ExamSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *sweepSessions) GetActive(ctx context.Context, userID, examID uint) (*models.ExamSession, error) {
	return nil, nil
}

func (r *sweepSessions) HasCompleted(ctx context.Context, userID, examID uint) (bool, error) {
	return false, nil
}

func (r *sweepSessions) UpdateTimeRemaining(ctx context.Context, id uint, remaining int) error {
	return nil
}

func (r *sweepSessions) ClaimFinalize(ctx context.Context, id uint, finishedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.claimDenied[id] {
		return false, nil
	}
	session, ok := r.s.sessions[id]
	if !ok || !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	session.IsCompleted = true
	session.FinishedAt = &finishedAt
	return true, nil
}

func (r *sweepSessions) FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExamSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ExamSession
	for _, session := range r.s.sessions {
		if session.IsActive && session.ExpiresAt.Before(now) {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *sweepSessions) UpsertAnswer(ctx context.Context, answer *models.SessionAnswer) error {
	return nil
}

func (r *sweepSessions) GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error) {
	return nil, nil
}

func (r *sweepSessions) MarkAnswersFinal(ctx context.Context, sessionID uint) error { return nil }

type sweepContests struct{ s *sweepStore }

func (r *sweepContests) Create(ctx context.Context, contest *models.Contest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.contests[contest.ID] = contest
	return nil
}

func (r *sweepContests) GetByID(ctx context.Context, id uint) (*models.Contest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contest, ok := r.s.contests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contest
	return &copied, nil
}

func (r *sweepContests) FindStartDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestUpcoming && !c.StartTime.After(now)
	})
}

func (r *sweepContests) FindEndDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestActive && !c.EndTime.After(now)
	})
}

func (r *sweepContests) FindArchivable(ctx context.Context, completedBefore time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestCompleted && c.EndTime.Before(completedBefore) && c.ArchivedAt == nil
	})
}

func (r *sweepContests) find(match func(*models.Contest) bool) ([]*models.Contest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Contest
	for _, contest := range r.s.contests {
		if match(contest) {
			copied := *contest
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *sweepContests) TransitionStatus(ctx context.Context, id uint, from, to models.ContestStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contest, ok := r.s.contests[id]
	if !ok || contest.Status != from {
		return false, nil
	}
	contest.Status = to
	return true, nil
}

func (r *sweepContests) IncrementParticipants(ctx context.Context, id uint) error { return nil }

func (r *sweepContests) Archive(ctx context.Context, id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if contest, ok := r.s.contests[id]; ok && contest.ArchivedAt == nil {
		contest.ArchivedAt = &at
	}
	return nil
}

// recordingFinalizer captures finalize calls and can fail selected sessions to
// exercise error isolation.
type recordingFinalizer struct {
	mu sync.Mutex

	sessions []uint
	contests []uint

	failSessions map[uint]error
}

func newRecordingFinalizer() *recordingFinalizer {
	return &recordingFinalizer{failSessions: make(map[uint]error)}
}

func (f *recordingFinalizer) FinalizeSession(ctx context.Context, session *models.ExamSession, expired bool) (*models.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failSessions[session.ID]; ok {
		return nil, err
	}
	f.sessions = append(f.sessions, session.ID)
	return &models.ExamResult{SessionID: session.ID}, nil
}

func (f *recordingFinalizer) FinalizeContest(ctx context.Context, contest *models.Contest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contests = append(f.contests, contest.ID)
	return nil
}

func (f *recordingFinalizer) finalizedSessions() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.sessions...)
}

func (f *recordingFinalizer) finalizedContests() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.contests...)
}

func newTestLifecycle(store *sweepStore, finalizer *recordingFinalizer, clock *utils.FixedClock, publisher *events.MockEventPublisher) *Lifecycle {
	return NewLifecycle(store, finalizer, publisher, clock, utils.NewDevelopmentLogger(), 90*24*time.Hour)
}

func TestSweepExpiredSessions(t *testing.T) {
	store := newSweepStore()
	finalizer := newRecordingFinalizer()
	clock := &utils.FixedClock{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	publisher := events.NewMockEventPublisher(slog.Default())
	lifecycle := newTestLifecycle(store, finalizer, clock, publisher)
	ctx := context.Background()

	expired := &models.ExamSession{ID: 1, IsActive: true, ExpiresAt: clock.Current.Add(-time.Minute)}
	running := &models.ExamSession{ID: 2, IsActive: true, ExpiresAt: clock.Current.Add(time.Hour)}
	store.sessions[1] = expired
	store.sessions[2] = running

	lifecycle.RunSweeps(ctx)

	require.Equal(t, []uint{1}, finalizer.finalizedSessions())
	require.False(t, store.sessions[1].IsActive)
	require.True(t, store.sessions[1].IsCompleted)
	require.Equal(t, expired.ExpiresAt, *store.sessions[1].FinishedAt)
	require.True(t, store.sessions[2].IsActive)

	t.Run("second sweep does nothing", func(t *testing.T) {
		lifecycle.RunSweeps(ctx)
		require.Equal(t, []uint{1}, finalizer.finalizedSessions())
	})

	t.Run("lost claim skipped", func(t *testing.T) {
		store.sessions[3] = &models.ExamSession{ID: 3, IsActive: true, ExpiresAt: clock.Current.Add(-time.Minute)}
		store.claimDenied[3] = true

		lifecycle.RunSweeps(ctx)
		require.Equal(t, []uint{1}, finalizer.finalizedSessions())
	})

	t.Run("one failure does not abort the sweep", func(t *testing.T) {
		store.sessions[4] = &models.ExamSession{ID: 4, IsActive: true, ExpiresAt: clock.Current.Add(-time.Minute)}
		store.sessions[5] = &models.ExamSession{ID: 5, IsActive: true, ExpiresAt: clock.Current.Add(-time.Minute)}
		finalizer.failSessions[4] = errors.New("storage down")

		lifecycle.RunSweeps(ctx)
		require.Contains(t, finalizer.finalizedSessions(), uint(5))
		require.NotContains(t, finalizer.finalizedSessions(), uint(4))
	})
}

func TestSweepContestLifecycle(t *testing.T) {
	store := newSweepStore()
	finalizer := newRecordingFinalizer()
	clock := &utils.FixedClock{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	publisher := events.NewMockEventPublisher(slog.Default())
	lifecycle := newTestLifecycle(store, finalizer, clock, publisher)
	ctx := context.Background()

	store.contests[1] = &models.Contest{
		ID:        1,
		Status:    models.ContestUpcoming,
		StartTime: clock.Current.Add(-time.Minute),
		EndTime:   clock.Current.Add(time.Hour),
	}
	store.contests[2] = &models.Contest{
		ID:        2,
		Status:    models.ContestUpcoming,
		StartTime: clock.Current.Add(time.Hour),
		EndTime:   clock.Current.Add(2 * time.Hour),
	}
	store.contests[3] = &models.Contest{
		ID:        3,
		Status:    models.ContestActive,
		StartTime: clock.Current.Add(-2 * time.Hour),
		EndTime:   clock.Current.Add(-time.Minute),
	}

	lifecycle.RunSweeps(ctx)

	require.Equal(t, models.ContestActive, store.contests[1].Status)
	require.Equal(t, models.ContestUpcoming, store.contests[2].Status)
	require.Equal(t, models.ContestCompleted, store.contests[3].Status)
	require.Equal(t, []uint{3}, finalizer.finalizedContests())

	var statusEvents int
	for _, e := range publisher.GetPublishedEvents() {
		if e.Type == events.EventContestStatusChanged {
			statusEvents++
		}
	}
	require.Equal(t, 2, statusEvents)

	t.Run("sweep is monotonic on repeat", func(t *testing.T) {
		lifecycle.RunSweeps(ctx)
		require.Equal(t, models.ContestActive, store.contests[1].Status)
		require.Equal(t, []uint{3}, finalizer.finalizedContests())
	})

	t.Run("activated contest completes on a later tick", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		lifecycle.RunSweeps(ctx)
		require.Equal(t, models.ContestCompleted, store.contests[1].Status)
		require.ElementsMatch(t, []uint{1, 2, 3}, append([]uint(nil), finalizer.finalizedContests()...))
	})
}

func TestSweepRetention(t *testing.T) {
	store := newSweepStore()
	finalizer := newRecordingFinalizer()
	clock := &utils.FixedClock{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	publisher := events.NewMockEventPublisher(slog.Default())
	lifecycle := newTestLifecycle(store, finalizer, clock, publisher)
	ctx := context.Background()

	old := &models.Contest{
		ID:        1,
		Status:    models.ContestCompleted,
		StartTime: clock.Current.Add(-91*24*time.Hour - time.Hour),
		EndTime:   clock.Current.Add(-91 * 24 * time.Hour),
	}
	recent := &models.Contest{
		ID:        2,
		Status:    models.ContestCompleted,
		StartTime: clock.Current.Add(-25 * time.Hour),
		EndTime:   clock.Current.Add(-24 * time.Hour),
	}
	store.contests[1] = old
	store.contests[2] = recent

	lifecycle.RunSweeps(ctx)

	require.NotNil(t, store.contests[1].ArchivedAt)
	require.Equal(t, clock.Current, *store.contests[1].ArchivedAt)
	require.Nil(t, store.contests[2].ArchivedAt)

	t.Run("archival happens once", func(t *testing.T) {
		archivedAt := *store.contests[1].ArchivedAt
		clock.Advance(time.Hour)
		lifecycle.RunSweeps(ctx)
		require.Equal(t, archivedAt, *store.contests[1].ArchivedAt)
	})
}
