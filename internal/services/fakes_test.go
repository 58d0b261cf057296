package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
)

// fakeRepo is an in-memory Repository used across the service tests. All
// mutations take the shared mutex so concurrent callers observe the same
// atomicity the real storage guarantees, in particular the conditional
// finalize claim and the unique result index.
type fakeRepo struct {
	mu sync.Mutex

	nextID uint

	exams          map[uint]*models.Exam
	registrations  map[uint]*models.Registration
	sessions       map[uint]*models.ExamSession
	answers        map[uint]map[uint]*models.SessionAnswer // session -> question -> answer
	results        map[uint]*models.ExamResult
	contests       map[uint]*models.Contest
	participants   map[uint]*models.ContestParticipant
	submissions    map[uint]*models.ContestSubmission
	contestResults map[uint]*models.ContestResult
	questions      map[uint]*models.Question
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		exams:          make(map[uint]*models.Exam),
		registrations:  make(map[uint]*models.Registration),
		sessions:       make(map[uint]*models.ExamSession),
		answers:        make(map[uint]map[uint]*models.SessionAnswer),
		results:        make(map[uint]*models.ExamResult),
		contests:       make(map[uint]*models.Contest),
		participants:   make(map[uint]*models.ContestParticipant),
		submissions:    make(map[uint]*models.ContestSubmission),
		contestResults: make(map[uint]*models.ContestResult),
		questions:      make(map[uint]*models.Question),
	}
}

func (f *fakeRepo) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) Exam() repositories.ExamRepository                 { return &fakeExams{f} }
func (f *fakeRepo) Registration() repositories.RegistrationRepository { return &fakeRegistrations{f} }
func (f *fakeRepo) Session() repositories.SessionRepository           { return &fakeSessions{f} }
func (f *fakeRepo) Result() repositories.ResultRepository             { return &fakeResults{f} }
func (f *fakeRepo) Contest() repositories.ContestRepository           { return &fakeContests{f} }
func (f *fakeRepo) ContestParticipant() repositories.ContestParticipantRepository {
	return &fakeParticipants{f}
}
func (f *fakeRepo) ContestSubmission() repositories.ContestSubmissionRepository {
	return &fakeSubmissions{f}
}
func (f *fakeRepo) ContestResult() repositories.ContestResultRepository {
	return &fakeContestResults{f}
}
func (f *fakeRepo) Question() repositories.QuestionRepository { return &fakeQuestions{f} }

func (f *fakeRepo) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

// ===== EXAMS =====

type fakeExams struct{ f *fakeRepo }

func (r *fakeExams) Create(ctx context.Context, exam *models.Exam) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam.ID = r.f.id()
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam, ok := r.f.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, nil
}

func (r *fakeExams) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Exam
	for _, exam := range r.f.exams {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		copied := *exam
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *fakeExams) TransitionStatus(ctx context.Context, id uint, from, to models.ExamStatus) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam, ok := r.f.exams[id]
	if !ok || exam.Status != from {
		return false, nil
	}
	exam.Status = to
	return true, nil
}

func (r *fakeExams) IncrementParticipants(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if exam, ok := r.f.exams[id]; ok {
		exam.ParticipantCount++
	}
	return nil
}

// ===== REGISTRATIONS =====

type fakeRegistrations struct{ f *fakeRepo }

func (r *fakeRegistrations) Create(ctx context.Context, reg *models.Registration) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.registrations {
		if existing.UserID == reg.UserID && existing.ExamID == reg.ExamID {
			return errors.New("duplicate registration")
		}
	}
	reg.ID = r.f.id()
	r.f.registrations[reg.ID] = reg
	return nil
}

func (r *fakeRegistrations) Get(ctx context.Context, userID, examID uint) (*models.Registration, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, reg := range r.f.registrations {
		if reg.UserID == userID && reg.ExamID == examID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRegistrations) Exists(ctx context.Context, userID, examID uint) (bool, error) {
	_, err := r.Get(ctx, userID, examID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeRegistrations) MarkAttended(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if reg, ok := r.f.registrations[id]; ok {
		reg.Attended = true
	}
	return nil
}

// ===== SESSIONS =====

type fakeSessions struct{ f *fakeRepo }

func (r *fakeSessions) Create(ctx context.Context, session *models.ExamSession) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	session.ID = r.f.id()
	r.f.sessions[session.ID] = session
	return nil
}

func (r *fakeSessions) GetByToken(ctx context.Context, token string) (*models.ExamSession, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range r.f.sessions {
		if s.Token == token {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessions) GetByID(ctx context.Context, id uint) (*models.ExamSession, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessions) GetActive(ctx context.Context, userID, examID uint) (*models.ExamSession, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range r.f.sessions {
		if s.UserID == userID && s.ExamID == examID && s.IsActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessions) HasCompleted(ctx context.Context, userID, examID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range r.f.sessions {
		if s.UserID == userID && s.ExamID == examID && s.IsCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessions) UpdateTimeRemaining(ctx context.Context, id uint, remaining int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if s, ok := r.f.sessions[id]; ok {
		s.TimeRemaining = remaining
	}
	return nil
}

func (r *fakeSessions) ClaimFinalize(ctx context.Context, id uint, finishedAt time.Time) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.IsCompleted = true
	s.FinishedAt = &finishedAt
	s.TimeRemaining = 0
	return true, nil
}

func (r *fakeSessions) FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExamSession, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamSession
	for _, s := range r.f.sessions {
		if s.IsActive && s.ExpiresAt.Before(now) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSessions) UpsertAnswer(ctx context.Context, answer *models.SessionAnswer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	byQuestion, ok := r.f.answers[answer.SessionID]
	if !ok {
		byQuestion = make(map[uint]*models.SessionAnswer)
		r.f.answers[answer.SessionID] = byQuestion
	}
	if existing, ok := byQuestion[answer.QuestionID]; ok {
		existing.Answer = answer.Answer
		existing.TimeTaken = answer.TimeTaken
		existing.IsCorrect = answer.IsCorrect
		existing.IsFinal = answer.IsFinal
		return nil
	}
	answer.ID = r.f.id()
	byQuestion[answer.QuestionID] = answer
	return nil
}

func (r *fakeSessions) GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.SessionAnswer
	for _, a := range r.f.answers[sessionID] {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeSessions) MarkAnswersFinal(ctx context.Context, sessionID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.answers[sessionID] {
		a.IsFinal = true
	}
	return nil
}

// ===== RESULTS =====

type fakeResults struct{ f *fakeRepo }

func (r *fakeResults) Create(ctx context.Context, result *models.ExamResult) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.results {
		if existing.UserID == result.UserID && existing.ExamID == result.ExamID {
			return errors.New("duplicate result")
		}
	}
	result.ID = r.f.id()
	r.f.results[result.ID] = result
	return nil
}

func (r *fakeResults) GetByUserAndExam(ctx context.Context, userID, examID uint) (*models.ExamResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, result := range r.f.results {
		if result.UserID == userID && result.ExamID == examID {
			copied := *result
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeResults) GetBySession(ctx context.Context, sessionID uint) (*models.ExamResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, result := range r.f.results {
		if result.SessionID == sessionID {
			copied := *result
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeResults) ListByExam(ctx context.Context, examID uint) ([]*models.ExamResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamResult
	for _, result := range r.f.results {
		if result.ExamID == examID {
			copied := *result
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeResults) Leaderboard(ctx context.Context, examID uint, filters repositories.LeaderboardFilters) ([]*models.ExamResult, int64, error) {
	results, err := r.ListByExam(ctx, examID)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(results))
	sortResultsByRank(results)
	if filters.Offset > 0 && filters.Offset < len(results) {
		results = results[filters.Offset:]
	} else if filters.Offset >= len(results) {
		results = nil
	}
	if filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}
	return results, total, nil
}

func (r *fakeResults) UpdateRanks(ctx context.Context, updates []repositories.RankUpdate) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range updates {
		if result, ok := r.f.results[u.ID]; ok {
			result.Rank = u.Rank
			result.Percentile = u.Percentile
		}
	}
	return nil
}

func sortResultsByRank(results []*models.ExamResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j-1].Rank > results[j].Rank; j-- {
			results[j-1], results[j] = results[j], results[j-1]
		}
	}
}

// ===== CONTESTS =====

type fakeContests struct{ f *fakeRepo }

func (r *fakeContests) Create(ctx context.Context, contest *models.Contest) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	contest.ID = r.f.id()
	r.f.contests[contest.ID] = contest
	return nil
}

func (r *fakeContests) GetByID(ctx context.Context, id uint) (*models.Contest, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	contest, ok := r.f.contests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contest
	return &copied, nil
}

func (r *fakeContests) FindStartDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestUpcoming && !c.StartTime.After(now)
	})
}

func (r *fakeContests) FindEndDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestActive && !c.EndTime.After(now)
	})
}

func (r *fakeContests) FindArchivable(ctx context.Context, completedBefore time.Time) ([]*models.Contest, error) {
	return r.find(func(c *models.Contest) bool {
		return c.Status == models.ContestCompleted && c.EndTime.Before(completedBefore) && c.ArchivedAt == nil
	})
}

func (r *fakeContests) find(match func(*models.Contest) bool) ([]*models.Contest, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Contest
	for _, c := range r.f.contests {
		if match(c) {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeContests) TransitionStatus(ctx context.Context, id uint, from, to models.ContestStatus) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	contest, ok := r.f.contests[id]
	if !ok || contest.Status != from {
		return false, nil
	}
	contest.Status = to
	return true, nil
}

func (r *fakeContests) IncrementParticipants(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if contest, ok := r.f.contests[id]; ok {
		contest.ParticipantCount++
	}
	return nil
}

func (r *fakeContests) Archive(ctx context.Context, id uint, at time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if contest, ok := r.f.contests[id]; ok && contest.ArchivedAt == nil {
		contest.ArchivedAt = &at
	}
	return nil
}

// ===== CONTEST PARTICIPANTS =====

type fakeParticipants struct{ f *fakeRepo }

func (r *fakeParticipants) Create(ctx context.Context, p *models.ContestParticipant) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.participants {
		if existing.ContestID == p.ContestID && existing.UserID == p.UserID {
			return errors.New("duplicate participant")
		}
	}
	p.ID = r.f.id()
	r.f.participants[p.ID] = p
	return nil
}

func (r *fakeParticipants) Exists(ctx context.Context, contestID, userID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, p := range r.f.participants {
		if p.ContestID == contestID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeParticipants) CountByContest(ctx context.Context, contestID uint) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var count int64
	for _, p := range r.f.participants {
		if p.ContestID == contestID {
			count++
		}
	}
	return count, nil
}

// ===== CONTEST SUBMISSIONS =====

type fakeSubmissions struct{ f *fakeRepo }

func (r *fakeSubmissions) Upsert(ctx context.Context, sub *models.ContestSubmission) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.submissions {
		if existing.ContestID == sub.ContestID && existing.UserID == sub.UserID && existing.QuestionID == sub.QuestionID {
			existing.Answer = sub.Answer
			existing.IsCorrect = sub.IsCorrect
			existing.Points = sub.Points
			existing.SubmittedAt = sub.SubmittedAt
			return nil
		}
	}
	sub.ID = r.f.id()
	r.f.submissions[sub.ID] = sub
	return nil
}

func (r *fakeSubmissions) GetByUserAndQuestion(ctx context.Context, contestID, userID, questionID uint) (*models.ContestSubmission, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, sub := range r.f.submissions {
		if sub.ContestID == contestID && sub.UserID == userID && sub.QuestionID == questionID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubmissions) ListByUser(ctx context.Context, contestID, userID uint) ([]*models.ContestSubmission, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ContestSubmission
	for _, sub := range r.f.submissions {
		if sub.ContestID == contestID && sub.UserID == userID {
			copied := *sub
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSubmissions) AggregateByUser(ctx context.Context, contestID uint) ([]repositories.ContestAggregate, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	byUser := make(map[uint]*repositories.ContestAggregate)
	for _, sub := range r.f.submissions {
		if sub.ContestID != contestID {
			continue
		}
		agg, ok := byUser[sub.UserID]
		if !ok {
			agg = &repositories.ContestAggregate{UserID: sub.UserID}
			byUser[sub.UserID] = agg
		}
		agg.TotalPoints += sub.Points
		agg.Submissions++
		if sub.IsCorrect {
			agg.Correct++
		}
		if sub.SubmittedAt.After(agg.LastSubmittedAt) {
			agg.LastSubmittedAt = sub.SubmittedAt
		}
	}
	out := make([]repositories.ContestAggregate, 0, len(byUser))
	for _, agg := range byUser {
		out = append(out, *agg)
	}
	return out, nil
}

// ===== CONTEST RESULTS =====

type fakeContestResults struct{ f *fakeRepo }

func (r *fakeContestResults) Create(ctx context.Context, result *models.ContestResult) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.contestResults {
		if existing.ContestID == result.ContestID && existing.UserID == result.UserID {
			return errors.New("duplicate contest result")
		}
	}
	result.ID = r.f.id()
	r.f.contestResults[result.ID] = result
	return nil
}

func (r *fakeContestResults) GetByUserAndContest(ctx context.Context, userID, contestID uint) (*models.ContestResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, result := range r.f.contestResults {
		if result.UserID == userID && result.ContestID == contestID {
			copied := *result
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeContestResults) ListByContest(ctx context.Context, contestID uint) ([]*models.ContestResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ContestResult
	for _, result := range r.f.contestResults {
		if result.ContestID == contestID {
			copied := *result
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeContestResults) Leaderboard(ctx context.Context, contestID uint, filters repositories.LeaderboardFilters) ([]*models.ContestResult, int64, error) {
	results, err := r.ListByContest(ctx, contestID)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(results))
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j-1].Rank > results[j].Rank; j-- {
			results[j-1], results[j] = results[j], results[j-1]
		}
	}
	if filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}
	return results, total, nil
}

func (r *fakeContestResults) UpdateRanks(ctx context.Context, updates []repositories.RankUpdate) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range updates {
		if result, ok := r.f.contestResults[u.ID]; ok {
			result.Rank = u.Rank
			result.Percentile = u.Percentile
		}
	}
	return nil
}

// ===== QUESTIONS =====

type fakeQuestions struct{ f *fakeRepo }

func (r *fakeQuestions) ResolveQuestion(ctx context.Context, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	q, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *fakeQuestions) ResolveQuestions(ctx context.Context, ids []uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make([]*models.Question, len(ids))
	for i, id := range ids {
		if q, ok := r.f.questions[id]; ok {
			copied := *q
			out[i] = &copied
		}
	}
	return out, nil
}
