package postgres

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB

	exam               repositories.ExamRepository
	registration       repositories.RegistrationRepository
	session            repositories.SessionRepository
	result             repositories.ResultRepository
	contest            repositories.ContestRepository
	contestParticipant repositories.ContestParticipantRepository
	contestSubmission  repositories.ContestSubmissionRepository
	contestResult      repositories.ContestResultRepository
	question           repositories.QuestionRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:                 db,
		exam:               NewExamPostgreSQL(db),
		registration:       NewRegistrationPostgreSQL(db),
		session:            NewSessionPostgreSQL(db),
		result:             NewResultPostgreSQL(db),
		contest:            NewContestPostgreSQL(db),
		contestParticipant: NewContestParticipantPostgreSQL(db),
		contestSubmission:  NewContestSubmissionPostgreSQL(db),
		contestResult:      NewContestResultPostgreSQL(db),
		question:           NewQuestionPostgreSQL(db),
	}
}

func (r *repository) Exam() repositories.ExamRepository                  { return r.exam }
func (r *repository) Registration() repositories.RegistrationRepository { return r.registration }
func (r *repository) Session() repositories.SessionRepository           { return r.session }
func (r *repository) Result() repositories.ResultRepository             { return r.result }
func (r *repository) Contest() repositories.ContestRepository           { return r.contest }
func (r *repository) ContestParticipant() repositories.ContestParticipantRepository {
	return r.contestParticipant
}
func (r *repository) ContestSubmission() repositories.ContestSubmissionRepository {
	return r.contestSubmission
}
func (r *repository) ContestResult() repositories.ContestResultRepository { return r.contestResult }
func (r *repository) Question() repositories.QuestionRepository           { return r.question }

func (r *repository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
