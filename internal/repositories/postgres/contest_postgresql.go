package postgres

import (
	"context"
	"time"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContestPostgreSQL struct {
	db *gorm.DB
}

func NewContestPostgreSQL(db *gorm.DB) repositories.ContestRepository {
	return &ContestPostgreSQL{db: db}
}

func (c *ContestPostgreSQL) Create(ctx context.Context, contest *models.Contest) error {
	return c.db.WithContext(ctx).Create(contest).Error
}

func (c *ContestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Contest, error) {
	var contest models.Contest
	if err := c.db.WithContext(ctx).First(&contest, id).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

func (c *ContestPostgreSQL) FindStartDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	var contests []*models.Contest
	if err := c.db.WithContext(ctx).
		Where("status = ? AND start_time <= ?", models.ContestUpcoming, now).
		Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

func (c *ContestPostgreSQL) FindEndDue(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	var contests []*models.Contest
	if err := c.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.ContestActive, now).
		Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

func (c *ContestPostgreSQL) FindArchivable(ctx context.Context, completedBefore time.Time) ([]*models.Contest, error) {
	var contests []*models.Contest
	if err := c.db.WithContext(ctx).
		Where("status = ? AND end_time < ? AND archived_at IS NULL", models.ContestCompleted, completedBefore).
		Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

// TransitionStatus uses the same conditional-update-on-expected-prior-state
// pattern as session finalization, so the scheduler and an admin call can race
// safely: the loser matches zero rows.
func (c *ContestPostgreSQL) TransitionStatus(ctx context.Context, id uint, from, to models.ContestStatus) (bool, error) {
	res := c.db.WithContext(ctx).
		Model(&models.Contest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (c *ContestPostgreSQL) IncrementParticipants(ctx context.Context, id uint) error {
	return c.db.WithContext(ctx).
		Model(&models.Contest{}).
		Where("id = ?", id).
		Update("participant_count", gorm.Expr("participant_count + 1")).Error
}

func (c *ContestPostgreSQL) Archive(ctx context.Context, id uint, at time.Time) error {
	return c.db.WithContext(ctx).
		Model(&models.Contest{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at).Error
}

type ContestParticipantPostgreSQL struct {
	db *gorm.DB
}

func NewContestParticipantPostgreSQL(db *gorm.DB) repositories.ContestParticipantRepository {
	return &ContestParticipantPostgreSQL{db: db}
}

func (c *ContestParticipantPostgreSQL) Create(ctx context.Context, p *models.ContestParticipant) error {
	return c.db.WithContext(ctx).Create(p).Error
}

func (c *ContestParticipantPostgreSQL) Exists(ctx context.Context, contestID, userID uint) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&models.ContestParticipant{}).
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *ContestParticipantPostgreSQL) CountByContest(ctx context.Context, contestID uint) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&models.ContestParticipant{}).
		Where("contest_id = ?", contestID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type ContestSubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewContestSubmissionPostgreSQL(db *gorm.DB) repositories.ContestSubmissionRepository {
	return &ContestSubmissionPostgreSQL{db: db}
}

func (c *ContestSubmissionPostgreSQL) Upsert(ctx context.Context, sub *models.ContestSubmission) error {
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "contest_id"}, {Name: "user_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer", "is_correct", "points", "submitted_at", "updated_at",
			}),
		}).
		Create(sub).Error
}

func (c *ContestSubmissionPostgreSQL) GetByUserAndQuestion(ctx context.Context, contestID, userID, questionID uint) (*models.ContestSubmission, error) {
	var sub models.ContestSubmission
	if err := c.db.WithContext(ctx).
		Where("contest_id = ? AND user_id = ? AND question_id = ?", contestID, userID, questionID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *ContestSubmissionPostgreSQL) ListByUser(ctx context.Context, contestID, userID uint) ([]*models.ContestSubmission, error) {
	var subs []*models.ContestSubmission
	if err := c.db.WithContext(ctx).
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Order("question_id").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *ContestSubmissionPostgreSQL) AggregateByUser(ctx context.Context, contestID uint) ([]repositories.ContestAggregate, error) {
	var aggregates []repositories.ContestAggregate
	if err := c.db.WithContext(ctx).
		Model(&models.ContestSubmission{}).
		Select("user_id, SUM(points) AS total_points, COUNT(*) AS submissions, SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct, MAX(submitted_at) AS last_submitted_at").
		Where("contest_id = ?", contestID).
		Group("user_id").
		Scan(&aggregates).Error; err != nil {
		return nil, err
	}
	return aggregates, nil
}

type ContestResultPostgreSQL struct {
	db *gorm.DB
}

func NewContestResultPostgreSQL(db *gorm.DB) repositories.ContestResultRepository {
	return &ContestResultPostgreSQL{db: db}
}

func (c *ContestResultPostgreSQL) Create(ctx context.Context, result *models.ContestResult) error {
	return c.db.WithContext(ctx).Create(result).Error
}

func (c *ContestResultPostgreSQL) GetByUserAndContest(ctx context.Context, userID, contestID uint) (*models.ContestResult, error) {
	var result models.ContestResult
	if err := c.db.WithContext(ctx).
		Where("user_id = ? AND contest_id = ?", userID, contestID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ContestResultPostgreSQL) ListByContest(ctx context.Context, contestID uint) ([]*models.ContestResult, error) {
	var results []*models.ContestResult
	if err := c.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (c *ContestResultPostgreSQL) Leaderboard(ctx context.Context, contestID uint, filters repositories.LeaderboardFilters) ([]*models.ContestResult, int64, error) {
	var results []*models.ContestResult
	var total int64

	query := c.db.WithContext(ctx).Model(&models.ContestResult{}).Where("contest_id = ?", contestID)
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

func (c *ContestResultPostgreSQL) UpdateRanks(ctx context.Context, updates []repositories.RankUpdate) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&models.ContestResult{}).
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
