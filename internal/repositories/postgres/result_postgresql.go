package postgres

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.ExamResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *ResultPostgreSQL) GetByUserAndExam(ctx context.Context, userID, examID uint) (*models.ExamResult, error) {
	var result models.ExamResult
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetBySession(ctx context.Context, sessionID uint) (*models.ExamResult, error) {
	var result models.ExamResult
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.ExamResult, error) {
	var results []*models.ExamResult
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ResultPostgreSQL) Leaderboard(ctx context.Context, examID uint, filters repositories.LeaderboardFilters) ([]*models.ExamResult, int64, error) {
	var results []*models.ExamResult
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ExamResult{}).Where("exam_id = ?", examID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("rank").Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *ResultPostgreSQL) UpdateRanks(ctx context.Context, updates []repositories.RankUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&models.ExamResult{}).
				Where("id = ?", u.ID).
				Updates(map[string]interface{}{
					"rank":       u.Rank,
					"percentile": u.Percentile,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
