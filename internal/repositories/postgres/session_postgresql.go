package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.ExamSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByToken(ctx context.Context, token string) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).
		Where("token = ?", token).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetActive(ctx context.Context, userID, examID uint) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND is_active = ?", userID, examID, true).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) HasCompleted(ctx context.Context, userID, examID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("user_id = ? AND exam_id = ? AND is_completed = ?", userID, examID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SessionPostgreSQL) UpdateTimeRemaining(ctx context.Context, id uint, remaining int) error {
	return s.db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ?", id).
		Update("time_remaining", remaining).Error
}

// ClaimFinalize is the single race point between an explicit finish and the
// expiry sweep. The WHERE clause on is_active makes the update indivisible:
// whichever actor's update applies first wins, the other matches zero rows.
func (s *SessionPostgreSQL) ClaimFinalize(ctx context.Context, id uint, finishedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"is_completed":   true,
			"finished_at":    finishedAt,
			"time_remaining": 0,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SessionPostgreSQL) FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExamSession, error) {
	var sessions []*models.ExamSession
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND expires_at < ?", true, now).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionPostgreSQL) UpsertAnswer(ctx context.Context, answer *models.SessionAnswer) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer", "time_taken", "is_correct", "is_final", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (s *SessionPostgreSQL) GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error) {
	var answers []*models.SessionAnswer
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_id").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *SessionPostgreSQL) MarkAnswersFinal(ctx context.Context, sessionID uint) error {
	return s.db.WithContext(ctx).
		Model(&models.SessionAnswer{}).
		Where("session_id = ?", sessionID).
		Update("is_final", true).Error
}
